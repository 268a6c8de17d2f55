package main

import (
	"GrievancePortal/internal/bootstrap"
	pkg "GrievancePortal/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()

	app := fx.New(
		pkg.PortalModules,
	)

	app.Run()
}
