// Command firestore-import copies the legacy Firestore collections into the
// relational database. Re-running it skips documents already imported.
//
//	go run ./cmd/firestore-import -project my-project -collections clients,products
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/services"
	"google.golang.org/api/option"
)

func main() {
	project := flag.String("project", os.Getenv("FIRESTORE_PROJECT_ID"), "Firestore project ID")
	collections := flag.String("collections", "", "Comma separated collections to import (default: all)")
	credentials := flag.String("credentials", "", "Path to a service account JSON file (default: application default credentials)")
	flag.Parse()

	if *project == "" {
		log.Fatal("-project (or FIRESTORE_PROJECT_ID) is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := config.GetDB()
	if err := config.Migrate(cfg, db, models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	source, err := services.NewFirestoreSource(ctx, *project, opts...)
	if err != nil {
		log.Fatalf("Failed to connect to Firestore: %v", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Printf("warning: failed to close Firestore client: %v", err)
		}
	}()

	var wanted []string
	if *collections != "" {
		wanted = strings.Split(*collections, ",")
	}

	results, err := services.NewImporter(db, source).Run(ctx, wanted)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := results[name]
		log.Printf("%-22s imported=%d skipped=%d failed=%d", name, s.Imported, s.Skipped, s.Failed)
	}
	if err != nil {
		log.Fatalf("Import stopped: %v", err)
	}
}
