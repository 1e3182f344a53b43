package edge

import "time"

// OriginParams 是 origin-request 阶段之后为自定义源站合成的连接参数。
type OriginParams struct {
	Protocol         string        `json:"protocol"`
	Domain           string        `json:"domainName"`
	Port             int           `json:"port"`
	Path             string        `json:"path,omitempty"`
	ReadTimeout      time.Duration `json:"readTimeout"`
	KeepaliveTimeout time.Duration `json:"keepaliveTimeout"`
}

// Event 是交给阶段函数的不可变输入。每个阶段消费一个 Event 并产出下一个形态，
// With* 方法总是返回副本。
type Event struct {
	Stage    Stage         `json:"stage"`
	Behavior string        `json:"behavior"`
	Request  Request       `json:"request"`
	Response *Response     `json:"response,omitempty"`
	Origin   *OriginParams `json:"origin,omitempty"`
}

// NewEvent 为一次请求创建初始事件。
func NewEvent(behavior string, req Request) Event {
	return Event{
		Stage:    StageViewerRequest,
		Behavior: behavior,
		Request:  req.Clone(),
	}
}

// Clone 深拷贝事件。
func (e Event) Clone() Event {
	out := e
	out.Request = e.Request.Clone()
	if e.Response != nil {
		resp := e.Response.Clone()
		out.Response = &resp
	}
	if e.Origin != nil {
		origin := *e.Origin
		out.Origin = &origin
	}
	return out
}

// At 返回切换到指定阶段的副本。
func (e Event) At(stage Stage) Event {
	out := e.Clone()
	out.Stage = stage
	return out
}

// WithRequest 返回替换请求后的副本。
func (e Event) WithRequest(req Request) Event {
	out := e.Clone()
	out.Request = req.Clone()
	return out
}

// WithResponse 返回携带响应的副本。
func (e Event) WithResponse(resp Response) Event {
	out := e.Clone()
	cloned := resp.Clone()
	out.Response = &cloned
	return out
}

// WithOrigin 返回携带源站连接参数的副本。
func (e Event) WithOrigin(params OriginParams) Event {
	out := e.Clone()
	out.Origin = &params
	return out
}
