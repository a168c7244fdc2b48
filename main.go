/*
Copyright © 2025 STARMOUNTAIN1997
*/
package main

import "github.com/starmountain1997/vaops/cmd"

func main() {
	cmd.Execute()
}
