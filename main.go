package main

import "github.com/ACNet-AI/OpenPersona-sub000/cmd"

func main() {
	cmd.Execute()
}
