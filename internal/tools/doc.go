// Package tools holds the PwnDoc tool catalog: the MCP tool definitions
// published to the host and, for each one, how a call maps onto the
// PwnDoc REST API.
//
// Most tools are direct: a method, a path template with {argument}
// placeholders and an optional body builder. A handful are aggregated and
// fan out over several API calls. The catalog never performs I/O itself;
// calls are executed through an Executor, normally a *pwndoc.Client.
package tools
