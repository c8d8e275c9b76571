package mapping

import (
	"context"
	"errors"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/port-experimental/repo-team-mapper/internal/database"
	"github.com/port-experimental/repo-team-mapper/internal/queue"
	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
	"github.com/port-experimental/repo-team-mapper/pkg/scm"
	"github.com/port-experimental/repo-team-mapper/pkg/scm/github"
)

var (
	memoryStorage = "memory"
	diskStorage   = "disk"

	apiAnalyzerType   = "api"
	cloneAnalyzerType = "clone"

	defaultMaxWorker     = 2
	defaultTopCommitters = 5
	defaultStateFile     = "repos_to_process.txt"
	defaultDatabasePath  = "mapper.db"
	defaultAnalyzer      = apiAnalyzerType
	defaultStorageType   = memoryStorage

	defaultCatalogURL       = "https://api.getport.io/v1"
	defaultBlueprint        = "service"
	defaultRepoTeamRelation = "team"
	defaultUserTeamProperty = "team"
)

// CatalogConfig is the catalog side of the configuration
type CatalogConfig struct {
	// BaseURL of the catalog api
	BaseURL string `toml:"base_url"`

	// ClientID and ClientSecret are the catalog credentials, falls back to
	// PORT_CLIENT_ID / PORT_CLIENT_SECRET in the environment
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// Blueprint is the blueprint holding repository entities
	Blueprint string `toml:"blueprint"`

	// RepoTeamRelation is the relation on the repository blueprint linking to
	// the owning team
	RepoTeamRelation string `toml:"repo_team_relation"`

	// UserTeamProperty is the key on the user entity holding team identifiers
	UserTeamProperty string `toml:"user_team_property"`
}

// Config is the configuration struct for the mapping pipeline. It can be
// created with ParseConfig.
type Config struct {
	// Organization is the source-control organization to map
	Organization string `toml:"organization"`

	// GithubToken falls back to GITHUB_TOKEN in the environment
	GithubToken string `toml:"github_token"`

	// MaxWorker is the max concurrent goroutine for the mapping process
	MaxWorker int `toml:"max_worker"`

	// TopCommitters is how many ranked committers are considered per repo
	TopCommitters int `toml:"top_committers"`

	// StateFile is the durable remaining-work queue
	StateFile string `toml:"state_file"`

	// DatabasePath is the sqlite file recording per-repo outcomes
	DatabasePath string `toml:"database_path"`

	// Analyzer picks the commit ranking backend, "api" or "clone"
	Analyzer string `toml:"analyzer"`

	// StorageType is the storage used by the clone analyzer
	StorageType string `toml:"storage_type"`
	StoragePath string `toml:"storage_path"`

	// Catalog holds the catalog api configuration
	Catalog CatalogConfig `toml:"catalog"`
}

type mapper struct {
	config   *Config
	scm      scm.Service
	catalog  Catalog
	analyzer Analyzer
	queue    *queue.Store
	db       database.Service
}

// Catalog is the slice of the catalog api the pipeline touches
type Catalog interface {
	FindUserByEmail(ctx context.Context, email string) (*catalog.User, error)
	UpsertEntity(ctx context.Context, blueprint string, entity catalog.Entity) error
}

// Service is the main interface for mapping module
type Service interface {
	Run(ctx context.Context) error
	Close()
}

// ParseConfig builds a Config from a toml file
func ParseConfig(configPath string) (*Config, error) {
	var config Config

	meta, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return nil, err
	}

	if !meta.IsDefined("max_worker") {
		config.MaxWorker = defaultMaxWorker
	}

	if !meta.IsDefined("top_committers") {
		config.TopCommitters = defaultTopCommitters
	}

	if !meta.IsDefined("state_file") {
		config.StateFile = defaultStateFile
	}

	if !meta.IsDefined("database_path") {
		config.DatabasePath = defaultDatabasePath
	}

	if !meta.IsDefined("analyzer") {
		config.Analyzer = defaultAnalyzer
	}

	if !meta.IsDefined("storage_type") {
		config.StorageType = defaultStorageType
	}

	if !meta.IsDefined("catalog", "base_url") {
		config.Catalog.BaseURL = defaultCatalogURL
	}

	if !meta.IsDefined("catalog", "blueprint") {
		config.Catalog.Blueprint = defaultBlueprint
	}

	if !meta.IsDefined("catalog", "repo_team_relation") {
		config.Catalog.RepoTeamRelation = defaultRepoTeamRelation
	}

	if !meta.IsDefined("catalog", "user_team_property") {
		config.Catalog.UserTeamProperty = defaultUserTeamProperty
	}

	if config.GithubToken == "" {
		config.GithubToken = os.Getenv("GITHUB_TOKEN")
	}

	if config.Catalog.ClientID == "" {
		config.Catalog.ClientID = os.Getenv("PORT_CLIENT_ID")
	}

	if config.Catalog.ClientSecret == "" {
		config.Catalog.ClientSecret = os.Getenv("PORT_CLIENT_SECRET")
	}

	if config.Organization == "" {
		return nil, errors.New("organization is mandatory")
	}

	if config.GithubToken == "" {
		return nil, errors.New("github token is mandatory, set github_token or GITHUB_TOKEN")
	}

	if config.Catalog.ClientID == "" || config.Catalog.ClientSecret == "" {
		return nil, errors.New("catalog credentials are mandatory, set catalog.client_id and catalog.client_secret or PORT_CLIENT_ID and PORT_CLIENT_SECRET")
	}

	if config.MaxWorker < 1 {
		return nil, errors.New("max_worker needs to be at least 1")
	}

	if config.Analyzer != apiAnalyzerType && config.Analyzer != cloneAnalyzerType {
		return nil, errors.New("invalid analyzer choose either \"api\" or \"clone\"")
	}

	if config.StorageType != memoryStorage && config.StorageType != diskStorage {
		return nil, errors.New("invalid storage type choose either \"memory\" or \"disk\"")
	}

	if config.Analyzer == cloneAnalyzerType && config.StorageType == diskStorage {
		if !meta.IsDefined("storage_path") {
			return nil, errors.New("disk storage type need storage_path to be defined")
		}
		fi, err := os.Stat(config.StoragePath)
		if err != nil || !fi.IsDir() {
			return nil, errors.New("storage_path doesn't exists or not a directory")
		}
	}

	return &config, nil
}

// New init the mapping pipeline
func New(config *Config) (Service, error) {
	parent := context.Background()
	ctx := context.WithValue(parent, scm.MaxWorkerKey, config.MaxWorker)

	gs := github.NewClientWithToken(ctx, config.GithubToken)

	cat := catalog.New(catalog.Options{
		BaseURL:          config.Catalog.BaseURL,
		ClientID:         config.Catalog.ClientID,
		ClientSecret:     config.Catalog.ClientSecret,
		UserTeamProperty: config.Catalog.UserTeamProperty,
	})

	q, err := queue.Open(config.StateFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(config.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		return nil, err
	}

	var an Analyzer
	if config.Analyzer == cloneAnalyzerType {
		an = newCloneAnalyzer(config.StorageType, config.StoragePath, config.GithubToken)
	} else {
		an = newAPIAnalyzer(gs)
	}

	return &mapper{
		config:   config,
		scm:      gs,
		catalog:  cat,
		analyzer: an,
		queue:    q,
		db:       db,
	}, nil
}

func (m *mapper) Close() {
	m.db.Close()
}
