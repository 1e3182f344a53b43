package edge

import (
	"fmt"
	"strings"
)

// Stage 标识四个可挂载边缘函数的生命周期扩展点。
type Stage string

const (
	StageViewerRequest  Stage = "viewer-request"
	StageOriginRequest  Stage = "origin-request"
	StageOriginResponse Stage = "origin-response"
	StageViewerResponse Stage = "viewer-response"
)

var allStages = []Stage{
	StageViewerRequest,
	StageOriginRequest,
	StageOriginResponse,
	StageViewerResponse,
}

// Stages 按执行顺序返回全部扩展点。
func Stages() []Stage {
	return append([]Stage(nil), allStages...)
}

// ParseStage 解析配置中的 stage 名称，兼容 viewerRequest / viewer_request 等写法。
func ParseStage(raw string) (Stage, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "viewer-request", "viewerrequest":
		return StageViewerRequest, nil
	case "origin-request", "originrequest":
		return StageOriginRequest, nil
	case "origin-response", "originresponse":
		return StageOriginResponse, nil
	case "viewer-response", "viewerresponse":
		return StageViewerResponse, nil
	default:
		return "", fmt.Errorf("unknown stage %q", raw)
	}
}

// IsRequestStage reports whether the stage runs before a response exists.
func (s Stage) IsRequestStage() bool {
	return s == StageViewerRequest || s == StageOriginRequest
}

func (s Stage) String() string {
	return string(s)
}
