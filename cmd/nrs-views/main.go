// Command nrs-views serves the wallet's account property and account
// details views rendered from a node's JSON API.
package main

func main() {
	Execute()
}
