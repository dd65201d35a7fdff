package main

import "github.com/MeKo-Tech/shelfocr/cmd/shelfocr/cmd"

func main() {
	cmd.Execute()
}
