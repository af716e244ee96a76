package server

import (
	"errors"
	"io"
	"net/http"
	"netbridge/codec"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Handler returns the HTTP handler serving envelopes at POST <path>. Other
// methods get 405.
func (svr *Server) Handler() http.Handler {
	svr.chain()
	r := httprouter.New()
	r.POST(svr.path, svr.serveHTTP)
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		svr.logger.Error("panic in http handler", zap.Any("panic", v), zap.Stack("stack"))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return r
}

func (svr *Server) serveHTTP(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	req.Body = http.MaxBytesReader(w, req.Body, svr.maxBodyBytes)
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	resp, err := svr.Handle(req.Context(), raw)
	if err != nil {
		svr.logger.Error("request fault", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if resp.Raw != nil {
		svr.write(w, codec.GetCodec(codec.CodecTypeBinary), resp.Raw)
		return
	}
	svr.write(w, codec.GetCodec(codec.CodecTypeJSON), resp)
}

func (svr *Server) write(w http.ResponseWriter, c codec.Codec, v any) {
	out, err := c.Encode(v)
	if err != nil {
		svr.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		svr.logger.Debug("failed to write response", zap.Error(err))
	}
}
