// Command release-publisher builds a binary for every target triple, uploads
// the artifacts to an object store and updates the download index.
package main

import "github.com/su6nl/release-publisher/cmd/release-publisher/cmd"

func main() {
	cmd.Execute()
}
