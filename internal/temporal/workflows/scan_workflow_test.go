package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/plant"
	lt "github.com/leaflens/leaflens-host/internal/temporal"
	"github.com/leaflens/leaflens-host/internal/temporal/activities"
)

func params() lt.ScanParams {
	return lt.ScanParams{ScanID: "scan-1", UserID: "user-1", Image: []byte("img"), ContentType: "image/jpeg", Source: "upload"}
}

func TestScanWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	var a *activities.Activities
	image := models.StoredImage{Key: "scans/user-1/a.jpg", URL: "http://cdn/a.jpg", ContentType: "image/jpeg", Size: 3}
	env.OnActivity(a.StoreCaptureActivity, mock.Anything, params()).Return(image, nil)
	env.OnActivity(a.IdentifyActivity, mock.Anything, params()).Return(plant.SamplePlant(), nil)

	env.ExecuteWorkflow(ScanWorkflow, params())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result models.ScanResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, image, result.Image)
	assert.Equal(t, "Sample Plant", result.Plant.Name)
}

func TestScanWorkflowDiscardsCaptureOnIdentifyFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	var a *activities.Activities
	image := models.StoredImage{Key: "scans/user-1/a.jpg"}
	env.OnActivity(a.StoreCaptureActivity, mock.Anything, params()).Return(image, nil)
	env.OnActivity(a.IdentifyActivity, mock.Anything, params()).Return(models.PlantInfo{}, errors.New("model offline"))
	env.OnActivity(a.DiscardCaptureActivity, mock.Anything, image.Key).Return(nil).Once()

	env.ExecuteWorkflow(ScanWorkflow, params())

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestScanWorkflowStoreFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	var a *activities.Activities
	env.OnActivity(a.StoreCaptureActivity, mock.Anything, params()).Return(models.StoredImage{}, errors.New("bucket missing"))

	env.ExecuteWorkflow(ScanWorkflow, params())

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
}

func TestScanActivities(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()

	store := &memImages{}
	env.RegisterActivity(&activities.Activities{Images: store, Identifier: plant.NewMockIdentifier(0)})

	val, err := env.ExecuteActivity((&activities.Activities{}).StoreCaptureActivity, params())
	require.NoError(t, err)
	var image models.StoredImage
	require.NoError(t, val.Get(&image))
	assert.Equal(t, "mem/user-1", image.Key)

	val, err = env.ExecuteActivity((&activities.Activities{}).IdentifyActivity, params())
	require.NoError(t, err)
	var info models.PlantInfo
	require.NoError(t, val.Get(&info))
	assert.Equal(t, plant.SamplePlant(), info)
}
