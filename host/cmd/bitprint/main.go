// Command bitprint runs the standalone stepper firmware on a host computer.
// Pins are simulated, so jobs can be translated, checked and dry-run without
// a board attached.
package main

func main() {
	Execute()
}
