package migrate

import (
	nurl "net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCustomQuery(t *testing.T) {
	n, err := nurl.Parse("neo4j://host:7687?x-database=movies&policy=fast")
	require.NoError(t, err)

	nx := FilterCustomQuery(n).Query()
	assert.Empty(t, nx.Get("x-database"))
	assert.Equal(t, "fast", nx.Get("policy"))

	// the input is left untouched
	assert.Equal(t, "movies", n.Query().Get("x-database"))
}
