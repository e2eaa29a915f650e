package main

import "mesure/fieldcap/cmd"

func main() {
	cmd.Execute()
}
