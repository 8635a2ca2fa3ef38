package main

import "kydx-console/cmd"

func main() {
	cmd.Execute()
}
