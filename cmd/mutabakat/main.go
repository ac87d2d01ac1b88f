package main

import (
	"log"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
