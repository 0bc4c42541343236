package main

import "github.com/vibast-solutions/ms-go-auctions/cmd"

func main() {
	cmd.Execute()
}
