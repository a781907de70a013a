package neo4j

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/hashicorp/go-multierror"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/golang-migrate/graphmigrate"
	"github.com/golang-migrate/graphmigrate/database"
)

func init() {
	db := Neo4j{}
	for _, scheme := range []string{"neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc"} {
		database.Register(scheme, &db)
	}
}

var (
	ErrNilConfig = fmt.Errorf("no config")
)

type Config struct {
	// DatabaseName selects the database, empty means the server default.
	DatabaseName string
}

type Neo4j struct {
	driver neo4j.DriverWithContext

	// major server version, "v4" or "v5" and up
	serverVersion string

	// Open and WithInstance need to guarantee that config is never nil
	config *Config
}

func WithInstance(driver neo4j.DriverWithContext, config *Config) (database.Store, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	nDriver := &Neo4j{
		driver: driver,
		config: config,
	}

	if err := nDriver.detectServerVersion(); err != nil {
		return nil, err
	}

	return nDriver, nil
}

func (n *Neo4j) Open(url string) (database.Store, error) {
	uri, err := neturl.Parse(url)
	if err != nil {
		return nil, err
	}

	authToken := neo4j.NoAuth()
	if uri.User != nil && uri.User.Username() != "" {
		password, _ := uri.User.Password()
		authToken = neo4j.BasicAuth(uri.User.Username(), password, "")
	}
	uri.User = nil
	databaseName := uri.Query().Get("x-database")
	uri = migrate.FilterCustomQuery(uri)
	if uri.Path == "/" {
		uri.Path = ""
	}

	driver, err := neo4j.NewDriverWithContext(uri.String(), authToken)
	if err != nil {
		return nil, database.Error{Err: "failed to create neo4j driver", OrigErr: database.RedactPassword(err)}
	}

	if err = driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, multierror.Append(
			database.Error{Err: "failed to connect to neo4j", OrigErr: database.RedactPassword(err)},
			driver.Close(context.Background()),
		).ErrorOrNil()
	}

	return WithInstance(driver, &Config{
		DatabaseName: databaseName,
	})
}

func (n *Neo4j) Close() error {
	return n.driver.Close(context.Background())
}

func (n *Neo4j) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: n.config.DatabaseName,
	})
}

// RunInTransaction uses an explicit transaction instead of ExecuteWrite,
// which would retry fn on transient errors.
func (n *Neo4j) RunInTransaction(ctx context.Context, fn func(tx database.Tx) error) (err error) {
	session := n.newSession(ctx, neo4j.AccessModeWrite)
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tx.Close(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	if err := fn(&neo4jTx{tx: tx, n: n}); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			return multierror.Append(err, rerr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (n *Neo4j) Run(ctx context.Context, query string, params map[string]any) (records []database.Record, err error) {
	err = n.RunInTransaction(ctx, func(tx database.Tx) error {
		records, err = tx.Run(ctx, query, params)
		return err
	})
	return records, err
}

func (n *Neo4j) CreateNode(ctx context.Context, label string, props map[string]any) error {
	return n.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.CreateNode(ctx, label, props)
	})
}

func (n *Neo4j) CreateEdge(ctx context.Context, from, to database.Match, relType string, props map[string]any) error {
	return n.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.CreateEdge(ctx, from, to, relType, props)
	})
}

func (n *Neo4j) DeleteNode(ctx context.Context, m database.Match) error {
	return n.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.DeleteNode(ctx, m)
	})
}

func (n *Neo4j) EnsureConstraint(ctx context.Context, label, property string) error {
	var query string
	if n.serverVersion == "v4" {
		query = fmt.Sprintf("CREATE CONSTRAINT ON (a:%s) ASSERT a.%s IS UNIQUE", quote(label), quote(property))
	} else {
		query = fmt.Sprintf("CREATE CONSTRAINT FOR (a:%s) REQUIRE a.%s IS UNIQUE", quote(label), quote(property))
	}
	return n.runSchema(ctx, query)
}

func (n *Neo4j) EnsureIndex(ctx context.Context, label, property string) error {
	records, err := n.read(ctx, `SHOW INDEXES YIELD labelsOrTypes, properties
WHERE labelsOrTypes = [$label] AND properties = [$property]
RETURN count(*) AS n`, map[string]any{"label": label, "property": property})
	if err != nil {
		return err
	}
	if len(records) > 0 {
		if c, ok := records[0]["n"].(int64); ok && c > 0 {
			return database.ErrAlreadyExists
		}
	}

	var query string
	if n.serverVersion == "v4" {
		query = fmt.Sprintf("CREATE INDEX ON :%s(%s)", quote(label), quote(property))
	} else {
		query = fmt.Sprintf("CREATE INDEX FOR (a:%s) ON (a.%s)", quote(label), quote(property))
	}
	return n.runSchema(ctx, query)
}

// runSchema runs a schema statement in its own session, schema and data
// writes can't share a transaction.
func (n *Neo4j) runSchema(ctx context.Context, query string) (err error) {
	session := n.newSession(ctx, neo4j.AccessModeWrite)
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	result, err := session.Run(ctx, query, nil)
	if _, err := neo4j.CollectWithContext(ctx, result, err); err != nil {
		var nerr *neo4j.Neo4jError
		if errors.As(err, &nerr) && strings.HasSuffix(nerr.Code, "AlreadyExists") {
			return fmt.Errorf("%w: %v", database.ErrAlreadyExists, nerr.Msg)
		}
		return err
	}
	return nil
}

func (n *Neo4j) MatchPath(ctx context.Context, label, relType string) (*database.Path, error) {
	p := &database.Path{}

	nodes, err := n.read(ctx, fmt.Sprintf("MATCH (n:%s) RETURN %s AS id, properties(n) AS props",
		quote(label), n.idExpr("n")), nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range nodes {
		id, _ := rec["id"].(string)
		props, _ := rec["props"].(map[string]any)
		p.Nodes = append(p.Nodes, database.Node{ID: id, Props: props})
	}

	rels, err := n.read(ctx, fmt.Sprintf("MATCH (a:%s)-[r:%s]->(b:%s) RETURN %s AS start, %s AS end, properties(r) AS props",
		quote(label), quote(relType), quote(label), n.idExpr("a"), n.idExpr("b")), nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range rels {
		start, _ := rec["start"].(string)
		end, _ := rec["end"].(string)
		props, _ := rec["props"].(map[string]any)
		p.Relationships = append(p.Relationships, database.Relationship{
			Type:    relType,
			StartID: start,
			EndID:   end,
			Props:   props,
		})
	}
	return p, nil
}

func (n *Neo4j) Drop(ctx context.Context) error {
	_, err := n.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	return err
}

func (n *Neo4j) read(ctx context.Context, query string, params map[string]any) (records []database.Record, err error) {
	session := n.newSession(ctx, neo4j.AccessModeRead)
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	result, err := session.Run(ctx, query, params)
	res, err := neo4j.CollectWithContext(ctx, result, err)
	if err != nil {
		return nil, err
	}
	return toRecords(res), nil
}

func (n *Neo4j) idExpr(variable string) string {
	if n.serverVersion == "v4" {
		return fmt.Sprintf("toString(id(%s))", variable)
	}
	return fmt.Sprintf("elementId(%s)", variable)
}

func (n *Neo4j) detectServerVersion() (err error) {
	ctx := context.Background()
	session := n.newSession(ctx, neo4j.AccessModeRead)
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	result, err := session.Run(ctx, "call dbms.components() yield versions unwind versions as version return version", nil)
	res, err := neo4j.CollectWithContext(ctx, result, err)
	if err != nil {
		return err
	}

	var major string
	if len(res) > 0 && len(res[0].Values) > 0 {
		if v, ok := res[0].Values[0].(string); ok {
			// calendar versions such as 2025.01.0 are not valid semver, the
			// major alone is
			major = semver.Major("v" + strings.SplitN(v, ".", 2)[0])
		}
	}

	switch {
	case major == "" || semver.Compare(major, "v4") < 0:
		return fmt.Errorf("unsupported neo4j version %q", major)
	case major == "v4":
		n.serverVersion = "v4"
	default:
		n.serverVersion = "v5"
	}
	return nil
}

type neo4jTx struct {
	tx neo4j.ExplicitTransaction
	n  *Neo4j
}

func (t *neo4jTx) Run(ctx context.Context, query string, params map[string]any) ([]database.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	res, err := neo4j.CollectWithContext(ctx, result, err)
	if err != nil {
		return nil, err
	}
	return toRecords(res), nil
}

func (t *neo4jTx) CreateNode(ctx context.Context, label string, props map[string]any) error {
	_, err := t.Run(ctx, fmt.Sprintf("CREATE (n:%s) SET n = $props", quote(label)), map[string]any{"props": props})
	return err
}

func (t *neo4jTx) CreateEdge(ctx context.Context, from, to database.Match, relType string, props map[string]any) error {
	params := map[string]any{"props": props}
	fromWhere := where("a", from.Props, params)
	toWhere := where("b", to.Props, params)

	query := fmt.Sprintf(`MATCH (a:%s) WHERE %s
MATCH (b:%s) WHERE %s
CREATE (a)-[r:%s]->(b) SET r = $props
RETURN count(r) AS created`, quote(from.Label), fromWhere, quote(to.Label), toWhere, quote(relType))

	records, err := t.Run(ctx, query, params)
	if err != nil {
		return err
	}
	var created int64
	if len(records) > 0 {
		created, _ = records[0]["created"].(int64)
	}
	switch {
	case created == 0:
		return fmt.Errorf("%w: %s %v or %s %v", database.ErrNotFound, from.Label, from.Props, to.Label, to.Props)
	case created > 1:
		// rolled back by the caller's transaction
		return fmt.Errorf("ambiguous match, %d %s relationships would be created", created, relType)
	}
	return nil
}

func (t *neo4jTx) DeleteNode(ctx context.Context, m database.Match) error {
	params := map[string]any{}
	query := fmt.Sprintf("MATCH (n:%s) WHERE %s DETACH DELETE n", quote(m.Label), where("n", m.Props, params))
	_, err := t.Run(ctx, query, params)
	return err
}

// where renders an equality predicate for every property, adding the
// values to params under names prefixed by variable.
func where(variable string, props map[string]any, params map[string]any) string {
	if len(props) == 0 {
		return "true"
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for i, k := range keys {
		name := fmt.Sprintf("%s%d", variable, i)
		params[name] = props[k]
		conds = append(conds, fmt.Sprintf("%s.%s = $%s", variable, quote(k), name))
	}
	return strings.Join(conds, " AND ")
}

func quote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func toRecords(res []*neo4j.Record) []database.Record {
	records := make([]database.Record, 0, len(res))
	for _, r := range res {
		records = append(records, database.Record(r.AsMap()))
	}
	return records
}
