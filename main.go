// File: main.go
package main

import "github.com/jmosier/campusnav/cmd"

func main() {
	cmd.Execute()
}
