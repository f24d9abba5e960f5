package main

import "github.com/wolfitem/news-collector/cmd"

func main() {
	cmd.Execute()
}
