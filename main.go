package main

import "github.com/Mohsinsiddi/tokensend/cmd"

func main() {
	cmd.Execute()
}
