package robot

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"pranbot_go/internal/config"
	"pranbot_go/internal/models"
)

func newFirmwareStub(t *testing.T) (*httptest.Server, *[]*url.URL) {
	t.Helper()

	var requests []*url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL)

		switch r.URL.Path {
		case "/data":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"smoke":850,"methane":300,"co":120,"air":400,"battery":3900,` +
				`"ir_left":1,"ir_right":0,"radar_angle":95,"radar_distance":42.5}`))
		case "/cmd", "/auto":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	}))
	return server, &requests
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.RobotConfig{
		BaseURL:     baseURL,
		ReadTimeout: 2 * time.Second,
	})
}

func TestClientReadFrameDecodesFirmwarePayload(t *testing.T) {
	server, _ := newFirmwareStub(t)
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	frame, err := client.ReadFrame()
	if err != nil {
		t.Fatalf("erro inesperado na leitura: %v", err)
	}

	if frame.Smoke != 850 || frame.Methane != 300 || frame.CO != 120 || frame.Air != 400 {
		t.Errorf("leituras de gás incorretas: %+v", frame)
	}
	if frame.Battery != 3900 {
		t.Errorf("bateria incorreta: %d", frame.Battery)
	}
	if !frame.IRLeft || frame.IRRight {
		t.Errorf("sensores IR incorretos: left=%v right=%v", frame.IRLeft, frame.IRRight)
	}
	if frame.RadarAngle != 95 || frame.RadarDistance != 42.5 {
		t.Errorf("radar incorreto: angle=%d distance=%v", frame.RadarAngle, frame.RadarDistance)
	}
	if frame.Timestamp.IsZero() {
		t.Error("timestamp não preenchido")
	}
	if !client.IsConnected() {
		t.Error("cliente deveria estar marcado como conectado após leitura")
	}
}

func TestClientDriveSendsDirectionAndSpeed(t *testing.T) {
	server, requests := newFirmwareStub(t)
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	if err := client.Drive(models.MotionCommand{Direction: models.DirLeft, Speed: 180}); err != nil {
		t.Fatalf("erro inesperado no comando: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("esperada 1 requisição, obtidas %d", len(*requests))
	}
	req := (*requests)[0]
	if req.Path != "/cmd" {
		t.Errorf("caminho incorreto: %s", req.Path)
	}
	if got := req.Query().Get("d"); got != "L" {
		t.Errorf("direção incorreta: %q", got)
	}
	if got := req.Query().Get("s"); got != "180" {
		t.Errorf("velocidade incorreta: %q", got)
	}
}

func TestClientSetAutoTogglesFirmwareMode(t *testing.T) {
	server, requests := newFirmwareStub(t)
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	if err := client.SetAuto(true); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if err := client.SetAuto(false); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if len(*requests) != 2 {
		t.Fatalf("esperadas 2 requisições, obtidas %d", len(*requests))
	}
	if got := (*requests)[0].Query().Get("v"); got != "1" {
		t.Errorf("primeira troca deveria enviar v=1, obtido %q", got)
	}
	if got := (*requests)[1].Query().Get("v"); got != "0" {
		t.Errorf("segunda troca deveria enviar v=0, obtido %q", got)
	}
}

func TestClientReadFrameSanitizesReadings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"smoke":-5,"methane":200,"co":-1,"air":300,"battery":3700,` +
			`"ir_left":0,"ir_right":0,"radar_angle":90,"radar_distance":0}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	frame, err := client.ReadFrame()
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if frame.Smoke != 0 || frame.CO != 0 {
		t.Errorf("leituras negativas deveriam virar zero: %+v", frame)
	}
	if frame.RadarDistance != models.DistanceSentinel {
		t.Errorf("distância zero deveria virar sentinela, obtido %v", frame.RadarDistance)
	}
}

func TestClientReadFrameReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	if _, err := client.ReadFrame(); err == nil {
		t.Fatal("esperado erro para resposta 500")
	}
	if client.IsConnected() {
		t.Error("cliente não deveria estar marcado como conectado após falha")
	}
}
