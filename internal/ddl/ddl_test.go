package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoresDDL = `
CREATE TABLE ` + "`scores`" + ` (
  ` + "`id`" + ` bigint NOT NULL,
  ` + "`user_id`" + ` bigint NOT NULL,
  ` + "`beatmap_id`" + ` bigint NOT NULL,
  ` + "`data`" + ` longtext,
  ` + "`total_score`" + ` bigint NOT NULL,
  PRIMARY KEY (` + "`id`" + `)
) ENGINE=InnoDB;
`

func TestExtractFindsDeclaredColumns(t *testing.T) {
	s, err := Extract(scoresDDL, "scores")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, []string{"id", "user_id", "beatmap_id", "data", "total_score"}, s.Columns)
	assert.Equal(t, 3, s.IndexOf("data"))
	assert.Equal(t, -1, s.IndexOf("missing"))
}

func TestExtractReturnsNilForUnknownTable(t *testing.T) {
	s, err := Extract(scoresDDL, "beatmaps")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestExtractPropagatesParseError(t *testing.T) {
	_, err := Extract("CREATE TABLE (((", "scores")
	assert.Error(t, err)
}

func TestSchemaIndexOfOnNilSchema(t *testing.T) {
	var s *Schema
	assert.Equal(t, -1, s.IndexOf("id"))
}

func TestExtractFromHeadFindsTableWithinWindow(t *testing.T) {
	dump := scoresDDL + "\nINSERT INTO scores VALUES (1, 2, 3, NULL, 4);\n"
	s, err := ExtractFromHead(strings.NewReader(dump), "scores")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, []string{"id", "user_id", "beatmap_id", "data", "total_score"}, s.Columns)
}

func TestExtractFromHeadReturnsNilWhenTableAbsent(t *testing.T) {
	s, err := ExtractFromHead(strings.NewReader("INSERT INTO scores VALUES (1);\n"), "scores")
	require.NoError(t, err)
	assert.Nil(t, s)
}
