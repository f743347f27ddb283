/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package main

import "github.com/gcomneno/onion-compressor-framework/cmd/gccocf/cmd"

func main() {
	cmd.Execute()
}
