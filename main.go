package main

// Entry point for the FreakyEStops e-stop monitor
func main() {
	Execute()
}
