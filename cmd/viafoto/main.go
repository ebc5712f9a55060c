package main

import "github.com/viafoto/viafoto/cmd/viafoto/cmd"

func main() {
	cmd.Execute()
}
