package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forge/internal/models"
)

func TestNewSeedsSystemMessage(t *testing.T) {
	c := New("be helpful")
	msgs := c.Snapshot()
	require.Len(t, msgs, 1)
	require.Equal(t, models.RoleSystem, msgs[0].Role)
	require.Equal(t, "be helpful", msgs[0].Content)
	require.NotEmpty(t, msgs[0].ID)
}

func TestAppendOrdersByCausality(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	c := New("sys")
	c.SetClock(func() time.Time { return fixed })

	a := c.Append(models.RoleUser, "one")
	b := c.Append(models.RoleAssistant, "two")
	require.Less(t, a.ID, b.ID)
	require.True(t, a.Timestamp.Equal(fixed))

	msgs := c.Snapshot()
	require.Equal(t, []string{"sys", "one", "two"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	require.Equal(t, b, c.Last())
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New("sys")
	c.Append(models.RoleUser, "hi")
	snap := c.Snapshot()
	snap[1].Content = "mutated"
	require.Equal(t, "hi", c.Snapshot()[1].Content)
}

func TestSetSystemPromptOnlyTouchesFirst(t *testing.T) {
	c := New("old")
	c.Append(models.RoleUser, "hi")
	id := c.Snapshot()[0].ID

	c.SetSystemPrompt("new")
	msgs := c.Snapshot()
	require.Equal(t, "new", msgs[0].Content)
	require.Equal(t, id, msgs[0].ID)
	require.Equal(t, "hi", msgs[1].Content)
	require.Equal(t, "new", c.SystemPrompt())
}

func TestClearKeepsSystemMessage(t *testing.T) {
	c := New("sys")
	c.Append(models.RoleUser, "hi")
	c.Append(models.RoleAssistant, "hello")
	snap := c.Snapshot()

	c.Clear()
	require.Equal(t, 1, c.Len())
	require.Equal(t, "sys", c.Last().Content)
	require.Len(t, snap, 3)

	c.Append(models.RoleUser, "again")
	require.Equal(t, "hi", snap[1].Content)
}

func TestReplaceAll(t *testing.T) {
	c := New("sys")
	c.ReplaceAll([]models.Message{
		{Role: models.RoleUser, Content: "restored"},
		{Role: models.RoleAssistant, Content: "answer"},
	})
	msgs := c.Snapshot()
	require.Len(t, msgs, 3)
	require.Equal(t, models.RoleSystem, msgs[0].Role)
	require.Equal(t, "sys", msgs[0].Content)
	require.NotEmpty(t, msgs[1].ID)

	c.ReplaceAll([]models.Message{{ID: "s", Role: models.RoleSystem, Content: "other"}})
	require.Equal(t, "other", c.SystemPrompt())
	require.Equal(t, 1, c.Len())
}

func TestIsDuplicateSubmission(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New("sys")
	c.SetClock(func() time.Time { return now })

	require.False(t, c.IsDuplicateSubmission("hi", time.Second))
	c.Append(models.RoleUser, "hi")
	require.True(t, c.IsDuplicateSubmission("hi", time.Second))
	require.False(t, c.IsDuplicateSubmission("other", time.Second))

	now = now.Add(5 * time.Second)
	require.False(t, c.IsDuplicateSubmission("hi", time.Second))
}
