package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkell/chainlend/internal/chain"
	"github.com/mkell/chainlend/internal/config"
	"github.com/mkell/chainlend/internal/database"
	"github.com/mkell/chainlend/internal/database/repository"
	"github.com/mkell/chainlend/internal/lending"
	"github.com/mkell/chainlend/internal/price"
	"github.com/mkell/chainlend/internal/service"
	"github.com/mkell/chainlend/internal/tui"
	"github.com/mkell/chainlend/internal/wallet"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	journal := repository.NewActivityRepo(db)

	urls := []string{cfg.Chain.RPCURL}
	if cfg.Chain.RPCFallbackURL != "" {
		urls = append(urls, cfg.Chain.RPCFallbackURL)
	}
	node := chain.NewClient(urls...)

	connector := wallet.NewConnector(node)
	contract := lending.NewClient(node, cfg.Chain.ContractAddress)

	borrower := &service.BorrowerService{
		Contract: contract,
		Prices:   price.NewClient(),
		Journal:  journal,
		Currency: cfg.UI.FiatCurrency,
	}

	loc := time.Local
	if cfg.UI.Timezone != "" {
		if l, err := time.LoadLocation(cfg.UI.Timezone); err == nil {
			loc = l
		} else {
			log.Printf("warn: using local timezone due to load failure: %v", err)
		}
	}

	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Deps{Connector: connector, Borrower: borrower, Journal: journal},
		loc,
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
