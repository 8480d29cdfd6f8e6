package main

import (
	"log"
	"os"
	"time"

	"bitbucket.org/cargolink/backend/api"
	"bitbucket.org/cargolink/backend/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

// @title cargolink backend API
// @version 0.1
// @description Freight marketplace API: shipments, vehicles, offers and payments.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /
// @schemes http https

// @securityDefinitions.apiKey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load("dev.env")

	app := cli.NewApp()
	app.Name = "CargoLink Backend"
	app.Version = "1.00"
	app.Compiled = time.Now()
	app.Commands = []cli.Command{
		{
			Name:  "backend-up",
			Usage: "This command starts the backend service",
			Action: func(c *cli.Context) error {
				StartServer(api.GetRoutes())
				return nil
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func StartServer(routes []*server.Route) {
	ctx := server.GetAppContext()
	ctx.CreateMySQLConnection()
	ctx.CreateStripeIntegration()
	ctx.CreateSquareIntegration()

	server.UpServer(routes, ctx)
}
