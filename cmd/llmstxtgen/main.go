// Package main provides the entry point for the llmstxtgen CLI.
//
// llmstxtgen crawls a website and generates an llms.txt document describing
// it, following the llmstxt.org convention.
//
// Usage:
//
//	llmstxtgen generate https://example.com
//	llmstxtgen serve --addr :8080
//
// See --help for all available options.
package main

// main is the entry point for llmstxtgen.
func main() {
	Execute()
}
