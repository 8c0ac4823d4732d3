package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	c := newCLI(defaultApp)
	if err := c.execute(c.command()); err != nil {
		out, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(out))
		os.Exit(1)
	}
}
