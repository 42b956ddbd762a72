package main

import "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/cli"

func main() {
	cli.Execute()
}
