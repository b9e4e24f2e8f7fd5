package main

import "github.com/MeKo-Tech/eastocr/cmd/eastocr/cmd"

func main() {
	cmd.Execute()
}
