// Command seed-db loads demo catalog data, coupon rules, and API-key
// credentials into the database. It is idempotent; rerunning upserts.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kofiasare/makola/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	VendorID string          `json:"vendorId"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type credentialSeed struct {
	actorID string
	role    string
	name    string
	envVar  string
}

// One key per role so every part of the API can be exercised out of the box.
// The vendor credential belongs to vend-1, the vendor owning several of the
// seeded products, so vendor-scoped operations work against the demo catalog.
var credentialSeeds = []credentialSeed{
	{actorID: "customer-demo", role: "customer", name: "Demo customer key", envVar: "MAKOLA_SEED_CUSTOMER_KEY"},
	{actorID: "vend-1", role: "vendor", name: "Demo vendor key", envVar: "MAKOLA_SEED_VENDOR_KEY"},
	{actorID: "admin-demo", role: "admin", name: "Demo admin key", envVar: "MAKOLA_SEED_ADMIN_KEY"},
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or MAKOLA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("MAKOLA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedCredentials(ctx, pool, pepper); err != nil {
		return errors.Wrap(err, "seed credentials")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price, category, vendor_id,
				image_thumbnail, image_mobile, image_tablet, image_desktop)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price,
				category = EXCLUDED.category, vendor_id = EXCLUDED.vendor_id,
				image_thumbnail = EXCLUDED.image_thumbnail, image_mobile = EXCLUDED.image_mobile,
				image_tablet = EXCLUDED.image_tablet, image_desktop = EXCLUDED.image_desktop`,
			p.ID, p.Name, p.Price, p.Category, p.VendorID,
			p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

type couponSeed struct {
	code         string
	discountType string
	value        decimal.Decimal
	minItems     int
	description  string
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	coupons := []couponSeed{
		{
			code:         "HAPPYHOURS",
			discountType: "percentage",
			value:        decimal.NewFromInt(18),
			description:  "Happy Hours: 18% off entire order",
		},
		{
			code:         "BUYGETONE",
			discountType: "free_lowest",
			value:        decimal.Zero,
			minItems:     2,
			description:  "Buy one get one: lowest priced item free",
		},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, discount_type, value, min_items, description)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO UPDATE SET
				discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
				min_items = EXCLUDED.min_items, description = EXCLUDED.description`,
			c.code, c.discountType, c.value, c.minItems, c.description,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

func seedCredentials(ctx context.Context, pool *pgxpool.Pool, pepper string) error {
	slog.Info("seeding API-key credentials")

	for _, seed := range credentialSeeds {
		key := os.Getenv(seed.envVar)
		if key == "" {
			slog.Warn("skipping credential, env var not set",
				slog.String("actor", seed.actorID), slog.String("env", seed.envVar))
			continue
		}

		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(key))
		keyHash := hex.EncodeToString(mac.Sum(nil))

		_, err := pool.Exec(ctx, `
			INSERT INTO actors (actor_id, role, name, key_hash, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (key_hash) DO UPDATE SET
				actor_id = EXCLUDED.actor_id, role = EXCLUDED.role,
				name = EXCLUDED.name, active = TRUE`,
			seed.actorID, seed.role, seed.name, keyHash,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert credential %s", seed.actorID)
		}

		slog.Info("upserted credential", slog.String("actor", seed.actorID), slog.String("role", seed.role))
	}

	return nil
}
