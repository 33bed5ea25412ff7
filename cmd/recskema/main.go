// Command recskema loads record schemas from YAML files and validates,
// exports, orders and archives records against them.
package main

func main() { Execute() }
