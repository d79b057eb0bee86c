package deploy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mrz1836/shipyard/internal/constants"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/remote"
)

// reachScript proves the SSH channel works and names the host.
const reachScript = "uname -n"

const envDelimiter = "SHIPYARD_ENV_EOF"

var (
	envKeyPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	revisionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)
)

// Environment is written to the application's .env file.
type Environment struct {
	SecretKey    string            `json:"-" mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	MongoURI     string            `json:"-" mapstructure:"mongo_uri" yaml:"mongo_uri,omitempty"`
	DatabaseName string            `json:"database_name" mapstructure:"database_name" yaml:"database_name"`
	FlaskEnv     string            `json:"flask_env" mapstructure:"flask_env" yaml:"flask_env"`
	Extra        map[string]string `json:"-" mapstructure:"extra" yaml:"extra,omitempty"`
}

// Lines returns KEY=value lines in a stable order.
func (e Environment) Lines() ([]string, error) {
	lines := []string{
		"SECRET_KEY=" + e.SecretKey,
		"MONGO_URI=" + e.MongoURI,
		"DATABASE_NAME=" + e.DatabaseName,
		"FLASK_ENV=" + e.FlaskEnv,
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !envKeyPattern.MatchString(k) {
			return nil, fmt.Errorf("environment key %q: %w", k, shipyarderrors.ErrConfigureFailed)
		}
		lines = append(lines, k+"="+e.Extra[k])
	}

	for _, l := range lines {
		if strings.ContainsAny(l, "\r\n") {
			key, _, _ := strings.Cut(l, "=")
			return nil, fmt.Errorf("environment value for %s contains a newline: %w", key, shipyarderrors.ErrConfigureFailed)
		}
	}
	return lines, nil
}

// ValidateRevision rejects empty revisions and values git would read as options.
func ValidateRevision(revision string) error {
	if !revisionPattern.MatchString(revision) || strings.Contains(revision, "..") {
		return fmt.Errorf("%q: %w", revision, shipyarderrors.ErrInvalidRevision)
	}
	return nil
}

// syncScript discards local changes and hard-resets the checkout to revision.
// A branch name resolves to its freshly fetched remote-tracking ref before
// falling back to a local ref, tag or hash. Every step is idempotent so the
// whole script can be re-run.
func syncScript(appDir, revision string) string {
	resolve := "rev=$(git rev-parse --verify --quiet " + remote.Quote("origin/"+revision+"^{commit}") +
		" || git rev-parse --verify --quiet " + remote.Quote(revision+"^{commit}") + ")" +
		" || { echo " + remote.Quote("unknown revision "+revision) + " >&2; exit 1; }"
	return strings.Join([]string{
		"set -e",
		"cd " + remote.Quote(appDir),
		"git reset --hard --quiet",
		"git clean -fd --quiet",
		"git fetch --all --prune --quiet",
		resolve,
		`git reset --hard --quiet "$rev"`,
		"git rev-parse HEAD",
	}, "\n")
}

// installScript creates the virtualenv when missing and installs requirements.
func installScript(appDir, python, requirements string) string {
	return strings.Join([]string{
		"set -e",
		"cd " + remote.Quote(appDir),
		"[ -d venv ] || " + remote.Quote(python) + " -m venv venv",
		"venv/bin/pip install --quiet --upgrade pip",
		"venv/bin/pip install --quiet -r " + remote.Quote(requirements),
	}, "\n")
}

// envScript writes the environment file with mode 600 and replaces it atomically.
func envScript(appDir string, env Environment) (string, error) {
	lines, err := env.Lines()
	if err != nil {
		return "", err
	}
	tmp := constants.EnvFileName + ".tmp"

	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString("cd " + remote.Quote(appDir) + "\n")
	b.WriteString("umask 077\n")
	b.WriteString("cat > " + tmp + " <<'" + envDelimiter + "'\n")
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	b.WriteString(envDelimiter + "\n")
	b.WriteString("chmod 600 " + tmp + "\n")
	b.WriteString("mv -f " + tmp + " " + constants.EnvFileName)
	return b.String(), nil
}
