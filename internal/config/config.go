package config

import (
	"strings"
	"time"

	env "github.com/DextroByt/Sentinel-AI/pkg/config"
	"github.com/DextroByt/Sentinel-AI/pkg/database"
	"github.com/DextroByt/Sentinel-AI/pkg/search"
)

// Config carries every tunable the service reads from the environment.
// Components never read env themselves; everything is resolved here once
// and injected at construction.
type Config struct {
	Port string

	Database database.Config

	// Judgment service
	GeminiKeys      []string
	ProModel        string
	FlashModel      string
	RotationBackoff time.Duration

	// Search
	Search      search.Config
	SearchRetry search.RetryConfig

	// Discovery inputs
	FeedURLs        []string
	ProbeQueries    []string
	PortalURLs      []string
	TrustedDomains  []string
	OfficialHandles []string
	TrustedOutlets  []string
	FactCheckSites  []string

	// Supervisor timing
	CyclePeriod     time.Duration
	DiscoveryWindow time.Duration
	SafetyMargin    time.Duration
	Cooldown        time.Duration
	MaxCrisisAge    time.Duration

	// Deep gathering
	HighRiskSeverity int
	RescanInterval   time.Duration
	BatchSize        int
	BatchCap         int
	SelectionCap     int
	TaskLimit        int
}

// Default allowlists mirror the deployment this service grew out of:
// Indian national authorities plus global health and fact-check outlets.
var (
	defaultPortals = []string{
		"https://ndma.gov.in",
		"https://pib.gov.in",
		"https://mausam.imd.gov.in",
	}
	defaultTrustedDomains = []string{
		"gov.in", "nic.in", "who.int", "un.org", "pib.gov.in",
	}
	defaultOfficialHandles = []string{
		"x.com/ndmaindia", "x.com/PIB_India", "x.com/Indiametdept",
	}
	defaultTrustedOutlets = []string{
		"reuters.com", "apnews.com", "bbc.com", "thehindu.com", "indianexpress.com",
	}
	defaultFactCheckSites = []string{
		"altnews.in", "boomlive.in", "factcheck.org", "snopes.com", "fullfact.org",
	}
	defaultFeeds = []string{
		"https://feeds.bbci.co.uk/news/world/rss.xml",
		"https://www.thehindu.com/news/national/feeder/default.rss",
		"https://reliefweb.int/updates/rss.xml",
	}
)

// Load resolves the full configuration from the environment.
func Load() Config {
	dbCfg := database.DefaultConfig()
	dbCfg.URL = env.GetEnv("DATABASE_URL", dbCfg.URL)

	return Config{
		Port: env.GetEnv("PORT", "18090"),

		Database: dbCfg,

		GeminiKeys:      splitKeys(env.RequireEnv("GEMINI_API_KEYS")),
		ProModel:        env.GetEnv("GEMINI_PRO_MODEL", "gemini-1.5-pro"),
		FlashModel:      env.GetEnv("GEMINI_FLASH_MODEL", "gemini-1.5-flash"),
		RotationBackoff: env.GetEnvDuration("ROTATION_BACKOFF", 500*time.Millisecond),

		Search: search.Config{
			Provider: env.GetEnv("SEARCH_PROVIDER", "brave"),
			APIKey:   env.GetEnv("SEARCH_API_KEY", ""),
			APIURL:   env.GetEnv("SEARCH_API_URL", ""),
			Timeout:  env.GetEnvDuration("SEARCH_TIMEOUT", 15*time.Second),
		},
		SearchRetry: search.DefaultRetryConfig(),

		FeedURLs:        listOr("FEED_URLS", defaultFeeds),
		ProbeQueries:    env.GetEnvList("PROBE_QUERIES"),
		PortalURLs:      listOr("PORTAL_URLS", defaultPortals),
		TrustedDomains:  listOr("TRUSTED_DOMAINS", defaultTrustedDomains),
		OfficialHandles: listOr("OFFICIAL_HANDLES", defaultOfficialHandles),
		TrustedOutlets:  listOr("TRUSTED_OUTLETS", defaultTrustedOutlets),
		FactCheckSites:  listOr("FACT_CHECK_SITES", defaultFactCheckSites),

		CyclePeriod:     env.GetEnvDuration("CYCLE_PERIOD", 3600*time.Second),
		DiscoveryWindow: env.GetEnvDuration("DISCOVERY_WINDOW", 120*time.Second),
		SafetyMargin:    env.GetEnvDuration("SAFETY_MARGIN", 30*time.Second),
		Cooldown:        env.GetEnvDuration("CYCLE_COOLDOWN", 5*time.Second),
		MaxCrisisAge:    env.GetEnvDuration("MAX_CRISIS_AGE", 24*time.Hour),

		HighRiskSeverity: env.GetEnvInt("HIGH_RISK_SEVERITY", 90),
		RescanInterval:   env.GetEnvDuration("RESCAN_INTERVAL", 120*time.Second),
		BatchSize:        env.GetEnvInt("DEEP_SCAN_BATCH_SIZE", 5),
		BatchCap:         env.GetEnvInt("DISCOVERY_BATCH_CAP", 60),
		SelectionCap:     env.GetEnvInt("SELECTION_CAP", 10),
		TaskLimit:        env.GetEnvInt("TASK_LIMIT", 16),
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func listOr(key string, fallback []string) []string {
	if values := env.GetEnvList(key); len(values) > 0 {
		return values
	}
	return fallback
}
