package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

var (
	readOnly    = mcp.WithReadOnlyHintAnnotation(true)
	mutating    = mcp.WithDestructiveHintAnnotation(false)
	destructive = mcp.WithDestructiveHintAnnotation(true)
)

func inCategory(category string, ds ...*Descriptor) []*Descriptor {
	for _, d := range ds {
		d.Category = category
	}
	return ds
}

func get(path string, tool mcp.Tool) *Descriptor {
	readOnly(&tool)
	return &Descriptor{Tool: tool, Method: http.MethodGet, Path: path}
}

func post(path string, body BodyFunc, tool mcp.Tool) *Descriptor {
	mutating(&tool)
	return &Descriptor{Tool: tool, Method: http.MethodPost, Path: path, Body: body}
}

func put(path string, body BodyFunc, tool mcp.Tool) *Descriptor {
	mutating(&tool)
	return &Descriptor{Tool: tool, Method: http.MethodPut, Path: path, Body: body}
}

func del(path string, tool mcp.Tool) *Descriptor {
	destructive(&tool)
	return &Descriptor{Tool: tool, Method: http.MethodDelete, Path: path}
}

func aggregated(run RunFunc, tool mcp.Tool) *Descriptor {
	readOnly(&tool)
	return &Descriptor{Tool: tool, Run: run}
}

// download fetches a binary resource through the Executor's Downloader.
func download(tool, template string) RunFunc {
	return func(ctx context.Context, exec Executor, args map[string]any) (any, error) {
		dl, ok := exec.(Downloader)
		if !ok {
			return nil, fmt.Errorf("binary downloads are not supported by this client")
		}
		path, err := expandPath(tool, template, args)
		if err != nil {
			return nil, err
		}
		return dl.Download(ctx, path)
	}
}

// idArg declares a required identifier argument.
func idArg(name, description string) mcp.ToolOption {
	return mcp.WithString(name, mcp.Required(), mcp.Description(description))
}

// dataArg declares the required object argument holding updated fields.
func dataArg(what string) mcp.ToolOption {
	return mcp.WithObject("data", mcp.Required(),
		mcp.Description("Fields to update on the "+what+", in PwnDoc's API format"))
}
