package main

import (
	"github.com/karacho11/first-chatbot-back/cmd"
)

func main() {
	cmd.Execute()
}
