package config

import (
	"encoding/json"
	"os"
)

type collectorJSON struct {
	Address       *string `json:"address"`
	Socket        *string `json:"socket"`
	TCPAddress    *string `json:"tcp_address"`
	DatabaseDSN   *string `json:"database_dsn"`
	StoreFile     *string `json:"store_file"`
	TrustedSubnet *string `json:"trusted_subnet"`
	ReadTimeout   *string `json:"read_timeout"` // "5s"
}

func loadCollectorJSON(path string) (*collectorJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c collectorJSON
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
