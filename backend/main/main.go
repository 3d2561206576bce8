package main

import (
	"flag"
	"log"

	"mangrovewatch/backend/db"
	"mangrovewatch/backend/server"
	"mangrovewatch/common"
	"mangrovewatch/config"
)

func main() {
	flag.Parse()
	log.Println("Hello!")

	cfg := config.Load()

	dbc, err := common.DBConnect()
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	if err := db.InitializeSchema(dbc); err != nil {
		log.Fatalf("Failed to initialize the schema: %v", err)
	}
	dbc.Close()

	server.StartService(cfg)
	log.Println("Bye!")
}
