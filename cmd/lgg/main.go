package main

import "github.com/MeKo-Tech/lgggrade/internal/cmd"

func main() {
	cmd.Execute()
}
