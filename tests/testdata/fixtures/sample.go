package sample

// Greet returns a greeting for the given name.
func Greet(name string) string {
	return "hello " + name
}

func farewell(name string) string {
	return "goodbye " + name
}
