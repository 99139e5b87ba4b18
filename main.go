package main

import "github.com/user-aditi/face-attendance-system/cmd"

func main() {
	cmd.Execute()
}
