package devops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// DBEntry is one environment's database as kept in the SSM parameter.
type DBEntry struct {
	Name     string `yaml:"name" json:"name"`
	Driver   string `yaml:"driver" json:"driver"`
	Host     string `yaml:"host" json:"host"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database" json:"database"`
}

func (db DBEntry) DriverName() string {
	if db.Driver == "" {
		return "mysql"
	}
	return strings.ToLower(db.Driver)
}

// GetDSN builds a connection string for the entry's driver. Hosts without a port
// get the driver's default.
func (db DBEntry) GetDSN() string {
	host := db.Host
	switch db.DriverName() {
	case "postgres", "postgresql":
		if !strings.Contains(host, ":") {
			host = host + ":5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     host,
			Path:     "/" + db.Database,
			RawQuery: "sslmode=require&TimeZone=UTC",
		}
		return u.String()
	default:
		if !strings.Contains(host, ":") {
			host = host + ":3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC", db.Username, db.Password, host, db.Database)
	}
}

// ParseDatabases reads the YAML list and indexes it by lower-cased name.
func ParseDatabases(raw []byte) (map[string]DBEntry, error) {
	var entries []DBEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	result := make(map[string]DBEntry, len(entries))
	for _, entry := range entries {
		result[strings.ToLower(entry.Name)] = entry
	}
	return result, nil
}

// LoadDatabases fetches the database list from SSM. Callers hold on to the
// result for as long as they need it.
func LoadDatabases(ctx context.Context, paramName string) (map[string]DBEntry, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter %s: %w", paramName, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s is empty", paramName)
	}
	return ParseDatabases([]byte(*out.Parameter.Value))
}

// ResolveDSN picks the entry for env.
func ResolveDSN(ctx context.Context, paramName, env string) (DBEntry, error) {
	dbs, err := LoadDatabases(ctx, paramName)
	if err != nil {
		return DBEntry{}, err
	}
	entry, ok := dbs[strings.ToLower(env)]
	if !ok {
		return DBEntry{}, fmt.Errorf("environment %q not found in parameter %s", env, paramName)
	}
	return entry, nil
}
