package handler

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	httputils "github.com/foomo/keel/utils/net/http"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/storewise/snapvault/pkg/metrics"
	"github.com/storewise/snapvault/pkg/snapshot"
	"github.com/storewise/snapvault/pkg/store"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	HTTP struct {
		l       *zap.Logger
		path    string
		manager *snapshot.Manager
		kv      *store.KV
	}
	HTTPOption func(*HTTP)

	loadRequest struct {
		ID string `json:"id"`
	}
	kvRequest struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHTTP(l *zap.Logger, manager *snapshot.Manager, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:       l.Named("http"),
		path:    "/snapvault",
		manager: manager,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithPath(v string) HTTPOption {
	return func(o *HTTP) {
		o.path = v
	}
}

// WithKV exposes the put/get routes on the node's kv store
func WithKV(v *store.KV) HTTPOption {
	return func(o *HTTP) {
		o.kv = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if r.Body == nil {
		httputils.BadRequestServerError(h.l, w, r, errors.New("empty request body"))
		return
	}

	bytes, err := io.ReadAll(r.Body)
	if err != nil {
		httputils.BadRequestServerError(h.l, w, r, errors.Wrap(err, "failed to read incoming request"))
		return
	}

	route := Route(strings.TrimPrefix(r.URL.Path, h.path+"/"))
	reply, errReply := h.handleRequest(r, route, bytes)
	if errReply != nil {
		http.Error(w, errReply.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(reply)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) handleRequest(r *http.Request, route Route, jsonBytes []byte) ([]byte, error) {
	start := time.Now()

	reply, err := h.executeRequest(r, route, jsonBytes)
	result := "success"
	if err != nil {
		result = "error"
	}

	metrics.ServiceRequestCounter.WithLabelValues(string(route), result).Inc()
	metrics.ServiceRequestDuration.WithLabelValues(string(route), result).Observe(time.Since(start).Seconds())

	return reply, err
}

func (h *HTTP) executeRequest(r *http.Request, route Route, jsonBytes []byte) ([]byte, error) {
	var reply interface{}

	switch route {
	case RouteSave:
		id, err := h.manager.Save(r.Context())
		if err != nil {
			h.l.Error("save failed", zap.Error(err))
			reply = map[string]interface{}{"success": false, "error": err.Error()}
		} else {
			reply = map[string]interface{}{"success": true, "id": id}
		}
	case RouteLoad:
		var req loadRequest
		if err := json.Unmarshal(jsonBytes, &req); err != nil && len(jsonBytes) > 0 {
			return nil, errors.Wrap(err, "could not read incoming json")
		}
		var err error
		if req.ID == "" {
			err = h.manager.Load(r.Context())
		} else {
			err = h.manager.LoadFrom(r.Context(), req.ID)
		}
		if err != nil {
			h.l.Error("load failed", zap.Error(err))
			reply = map[string]interface{}{"success": false, "error": err.Error()}
		} else {
			reply = map[string]interface{}{"success": true}
		}
	case RouteList:
		ids, err := h.manager.List()
		if err != nil {
			return nil, err
		}
		reply = map[string]interface{}{"snapshots": ids}
	case RouteStatus:
		current, err := h.manager.Current()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		ids, err := h.manager.List()
		if err != nil {
			return nil, err
		}
		reply = map[string]interface{}{"current": current, "snapshots": len(ids)}
	case RoutePut:
		if h.kv == nil {
			reply = map[string]interface{}{"success": false, "error": "no kv store configured"}
			break
		}
		var req kvRequest
		if err := json.Unmarshal(jsonBytes, &req); err != nil {
			return nil, errors.Wrap(err, "could not read incoming json")
		}
		h.kv.Set(req.Key, req.Value)
		reply = map[string]interface{}{"success": true}
	case RouteGet:
		if h.kv == nil {
			reply = map[string]interface{}{"success": false, "error": "no kv store configured"}
			break
		}
		var req kvRequest
		if err := json.Unmarshal(jsonBytes, &req); err != nil {
			return nil, errors.Wrap(err, "could not read incoming json")
		}
		value, ok := h.kv.Get(req.Key)
		reply = map[string]interface{}{"value": value, "found": ok}
	default:
		reply = map[string]interface{}{"error": "unknown handler: " + string(route)}
	}

	return h.encodeReply(reply)
}

// encodeReply takes an interface and encodes it as JSON
// it returns the resulting JSON and a marshalling error
func (h *HTTP) encodeReply(reply interface{}) (bytes []byte, err error) {
	bytes, err = json.Marshal(map[string]interface{}{
		"reply": reply,
	})
	if err != nil {
		h.l.Error("could not encode reply", zap.Error(err))
	}
	return
}
