package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/collection"
	"github.com/Jerry0022/PYCO/internal/docstore"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestArticleList_Golden(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	g := newGoldie(t)
	g.Assert(t, "article_ls_text", []byte(mustRunCLI(t, db, nil, "article", "ls")))
	g.Assert(t, "article_ls_json", []byte(mustRunCLI(t, db, nil, "--format", "json", "article", "ls")))
}

func TestArticleList_Empty(t *testing.T) {
	out := mustRunCLI(t, testDB(t), nil, "article", "ls")
	assert.Equal(t, "no articles\n", out)
}

func TestArticleAdd(t *testing.T) {
	db := testDB(t)
	opts := seedArticles(t, db)

	out := mustRunCLI(t, db, opts, "article", "add", "--title", "Pinned", "--at", "0")
	assert.Equal(t, "added a-4 at 0\n", out)

	out = mustRunCLI(t, db, opts, "--format", "json", "article", "add", "--title", "Last")
	var resp struct {
		Status string      `json:"status"`
		Data   articleView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, articleView{Pos: 4, ID: "a-5", Title: "Last", Published: "2024-01-02T03:04:05.678Z"}, resp.Data)
}

func TestArticleAdd_Errors(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, testOptions("x"), "article", "add", "--body", "no title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = runCLI(t, db, testOptions("x"), "article", "add", "--title", "t", "--published", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, db, testOptions("x"), "article", "add", "--title", "t", "--at", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, collection.ErrOutOfRange))
}

func TestArticleRemove(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	out := mustRunCLI(t, db, nil, "article", "rm", "0")
	assert.Equal(t, "removed 1, 2 remaining\n", out)

	out = mustRunCLI(t, db, nil, "article", "ls")
	assert.Equal(t,
		"0\ta-2\t2023-12-31T23:00:00Z\tSecond\n"+
			"1\ta-3\t2024-01-02T03:04:05.678Z\tThird\n", out)

	out = mustRunCLI(t, db, nil, "article", "rm", "0", "--count", "2")
	assert.Equal(t, "removed 2, 0 remaining\n", out)
}

func TestArticleRemove_OutOfRange(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	out, err := runCLI(t, db, nil, "--format", "json", "article", "rm", "2", "-n", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOutOfRange, resp.Error.Code)

	_, err = runCLI(t, db, nil, "article", "rm", "first")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")

	assert.Len(t, outputLines(mustRunCLI(t, db, nil, "article", "ls")), 3, "nothing removed")
}

func TestArticleMove(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	out := mustRunCLI(t, db, nil, "article", "mv", "0", "2")
	assert.Equal(t,
		"0\ta-2\t2023-12-31T23:00:00Z\tSecond\n"+
			"1\ta-3\t2024-01-02T03:04:05.678Z\tThird\n"+
			"2\ta-1\t2024-01-02T03:04:05.678Z\tFirst\n", out)

	_, err := runCLI(t, db, nil, "article", "mv", "1", "2", "--count", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestArticleSearch(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	out := mustRunCLI(t, db, nil, "article", "search", "Second", "--field", "title")
	assert.Equal(t, "1\ta-2\t2023-12-31T23:00:00Z\tSecond\n", out)

	out = mustRunCLI(t, db, nil, "article", "search", "nobody", "--field", "author")
	assert.Equal(t, "no articles\n", out)

	_, err := runCLI(t, db, nil, "article", "search", "engines", "--index", "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, docstore.ErrIndexNotFound))

	out = mustRunCLI(t, db, nil, "index", "create", "text", "title", "body")
	assert.Equal(t, "index text on title, body\n", out)

	out = mustRunCLI(t, db, nil, "article", "search", "ENGI*", "--index", "text")
	assert.Equal(t, "2\ta-3\t2024-01-02T03:04:05.678Z\tThird\n", out)

	out = mustRunCLI(t, db, nil, "article", "search", "hello first", "--index", "text")
	assert.Equal(t, "0\ta-1\t2024-01-02T03:04:05.678Z\tFirst\n", out)
}

func TestArticleSearch_RequiresOneMode(t *testing.T) {
	db := testDB(t)

	for _, args := range [][]string{
		{"article", "search", "x"},
		{"article", "search", "x", "--field", "title", "--index", "text"},
	} {
		_, err := runCLI(t, db, nil, args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --field or --index")
	}
}

func TestIndex_CreateDrop(t *testing.T) {
	db := testDB(t)
	seedArticles(t, db)

	_, err := runCLI(t, db, nil, "index", "create", "bad", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `has no field "summary"`)

	mustRunCLI(t, db, nil, "index", "create", "text", "body")
	out := mustRunCLI(t, db, nil, "index", "drop", "text")
	assert.Equal(t, "dropped index text\n", out)

	_, err = runCLI(t, db, nil, "article", "search", "hello", "--index", "text")
	assert.True(t, errors.Is(err, docstore.ErrIndexNotFound))
}
