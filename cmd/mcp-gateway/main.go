// Command mcp-gateway runs a single HTTP surface that fronts a set of
// upstream MCP tool servers, supervising command-kind upstreams and
// aggregating health across all of them.
package main

func main() {
	Execute()
}
