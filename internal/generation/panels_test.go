package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

type fakePanels struct {
	mu      sync.Mutex
	fail    map[string]error
	delay   map[string]time.Duration
	prompts map[string]string
}

func (f *fakePanels) GeneratePanel(_ context.Context, storyContext, label string, _ int) (*Image, error) {
	if d := f.delay[label]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	if f.prompts == nil {
		f.prompts = make(map[string]string)
	}
	f.prompts[label] = storyContext
	f.mu.Unlock()
	if err := f.fail[label]; err != nil {
		return nil, err
	}
	return &Image{Data: []byte(label), MIMEType: "image/png"}, nil
}

func TestGenerateAllPanels_OrderIsNarrativeNotCompletion(t *testing.T) {
	fake := &fakePanels{delay: map[string]time.Duration{
		"Scene 1": 40 * time.Millisecond,
		"Scene 2": 30 * time.Millisecond,
		"Scene 3": 20 * time.Millisecond,
	}}
	coord := NewPanelCoordinator(fake, testLogger())

	var (
		mu       sync.Mutex
		progress []int
	)
	res, err := coord.GenerateAllPanels(context.Background(), "The whole story.", "noir", func(n int) {
		mu.Lock()
		progress = append(progress, n)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, res.Images, 4)
	for i, img := range res.Images {
		assert.Equal(t, fmt.Sprintf("Scene %d", i+1), string(img.Data))
	}
	assert.False(t, res.Partial())
	assert.NoError(t, res.Warning())
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	for label, prompt := range fake.prompts {
		assert.Contains(t, prompt, "The whole story.", label)
	}
	assert.Contains(t, fake.prompts["Scene 1"], "noir")
}

func TestGenerateAllPanels_PartialSuccess(t *testing.T) {
	fake := &fakePanels{fail: map[string]error{
		"Scene 2": errors.New("no image"),
		"Scene 4": errors.New("quota"),
	}}
	coord := NewPanelCoordinator(fake, testLogger())

	settled := 0
	res, err := coord.GenerateAllPanels(context.Background(), "story", "", func(n int) { settled = n })
	require.NoError(t, err)
	assert.Equal(t, 4, settled, "failures count toward progress")

	require.Len(t, res.Images, 2)
	assert.Equal(t, "Scene 1", string(res.Images[0].Data))
	assert.Equal(t, "Scene 3", string(res.Images[1].Data))
	assert.Equal(t, []string{"Scene 1", "Scene 3"}, res.Labels)
	assert.True(t, res.Partial())
	assert.ErrorIs(t, res.Warning(), apperr.ErrPartialBatch)
	assert.Equal(t, []string{"Scene 2: no image", "Scene 4: quota"}, res.FailureMessages())
}

func TestGenerateAllPanels_AllFail(t *testing.T) {
	fake := &fakePanels{fail: map[string]error{
		"Scene 1": errors.New("a"),
		"Scene 2": errors.New("b"),
		"Scene 3": errors.New("c"),
		"Scene 4": errors.New("d"),
	}}
	coord := NewPanelCoordinator(fake, testLogger())

	res, err := coord.GenerateAllPanels(context.Background(), "story", "", nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "All image generations failed. Errors: Scene 1: a; Scene 2: b; Scene 3: c; Scene 4: d", err.Error())
	assert.ErrorIs(t, err, apperr.ErrGeneration)
}

func TestGenerateAllPanels_MinSuccesses(t *testing.T) {
	fake := &fakePanels{fail: map[string]error{
		"Scene 1": errors.New("a"),
		"Scene 2": errors.New("b"),
		"Scene 3": errors.New("c"),
	}}
	coord := NewPanelCoordinator(fake, testLogger())
	coord.MinSuccesses = 2

	_, err := coord.GenerateAllPanels(context.Background(), "story", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPartialBatch)
	assert.True(t, strings.HasPrefix(err.Error(), "Only 1 of 4 panels generated"))
}

func TestGenerateAllPanels_RequiresStory(t *testing.T) {
	coord := NewPanelCoordinator(&fakePanels{}, testLogger())
	_, err := coord.GenerateAllPanels(context.Background(), " ", "", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
