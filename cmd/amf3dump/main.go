// Package main is the amf3dump command line tool.
package main

import "github.com/DMA-Software/dma-goamf/internal/cli"

func main() {
	cli.Execute()
}
