package main

import "pickmate-backend/cmd"

func main() {
	cmd.Run()
}
