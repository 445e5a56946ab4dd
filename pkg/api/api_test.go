package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/mission-control/domain/robot"
	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
	"github.com/open-teleop/mission-control/services"
)

const teleopYAML = `
version: "1.0"
config_id: "api-test"
fleet:
  - id: "1"
    name: "Rover"
    model: "R-100"
    x: 100
    y: 100
`

type testEnv struct {
	app      *fiber.App
	registry *robot.Registry
	teleop   *teleop.TeleopService
	cfgPath  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	nullLogger, _ := test.NewNullLogger()
	logger := customlog.NewFromLogrus(nullLogger)

	cfgPath := filepath.Join(t.TempDir(), "teleop_config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(teleopYAML), 0644))
	cfgSvc, err := services.NewTeleopConfigService(cfgPath, logger)
	require.NoError(t, err)

	registry := robot.NewRegistry()
	registry.LoadFromConfig(cfgSvc.GetCurrentConfig().Fleet, cfgSvc.Arena())
	svc := teleop.NewTeleopService(registry, cfgSvc.Arena, nil, nil, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRobotRoutes(app, registry, logger)
	RegisterControlRoutes(app, svc, registry, logger)
	RegisterConfigRoutes(app, cfgSvc, logger)

	return &testEnv{app: app, registry: registry, teleop: svc, cfgPath: cfgPath}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestListRobots(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/robots", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list RobotListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "Rover", list.Robots[0].Name)
}

func TestGetRobot(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/robots/1", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var r robot.Robot
	require.NoError(t, json.Unmarshal(body, &r))
	assert.Equal(t, robot.Robot{ID: "1", Name: "Rover", Model: "R-100", X: 100, Y: 100, Arena: teleop.DefaultArena()}, r)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/robots/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestControlHandshakeRefusals(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/ws/robot/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/ws/robot/1", nil))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	release, err := env.teleop.Leases().Acquire("1", "someone-else")
	require.NoError(t, err)
	defer release()

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/ws/robot/1", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), teleop.ErrDeviceBusy.Error())
}

func TestGetTeleopConfig(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/config/teleop", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-yaml", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, string(body), "api-test")
}

func TestUpdateTeleopConfig(t *testing.T) {
	env := newTestEnv(t)

	put := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/config/teleop", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, "application/x-yaml")
		resp, _ := env.do(t, req)
		return resp
	}

	assert.Equal(t, http.StatusBadRequest, put("").StatusCode, "empty body")
	assert.Equal(t, http.StatusBadRequest, put("version: \"2\"\n").StatusCode)

	updated := strings.Replace(teleopYAML, "api-test", "api-test-2", 1)
	assert.Equal(t, http.StatusOK, put(updated).StatusCode)

	onDisk, err := os.ReadFile(env.cfgPath)
	require.NoError(t, err)
	cfg, err := config.ParseConfig(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "api-test-2", cfg.ConfigID)
}
