//go:build integration

package registry

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestIntegration_RealRegistry(t *testing.T) {
	baseURL := os.Getenv("REGISTRY_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := NewClient(baseURL, DefaultTimeout, logrus.New())

	result, err := client.FetchRecruitingTrials(context.Background(), "Diabetes", 3)
	if err != nil {
		t.Skipf("registry unavailable: %v", err)
	}

	assert.LessOrEqual(t, result.Len(), 3)
	assert.Len(t, result.EligibilityCriteria, result.Len())
	for _, id := range result.NCTIDs {
		assert.NotEmpty(t, id)
	}
}
