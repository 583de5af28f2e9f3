package api

import (
	"github.com/lysyi3m/catalog-comb/app/database"
)

type Handler struct {
	outputDir string
	version   string
	history   database.RunRepository
}
