package edge

type resultKind uint8

const (
	resultUnset resultKind = iota
	resultContinue
	resultTerminal
)

// Result is the discriminated outcome of one stage invocation: either
// Continue with a (possibly rewritten) request, or Terminal with a complete
// response that short-circuits the remaining stages.
//
// For response stages, Terminal carries the replacement response and Continue
// means "keep the response unchanged". The zero Result is unset; the engine
// treats it like Pass.
type Result struct {
	kind     resultKind
	request  Request
	response Response
}

// Continue 表示本阶段没有终结结果，携带的请求进入下一阶段。
func Continue(req Request) Result {
	return Result{kind: resultContinue, request: req.Clone()}
}

// Terminal 表示本阶段产出了完整响应。
func Terminal(resp Response) Result {
	return Result{kind: resultTerminal, response: resp.Clone()}
}

// Pass 原样放行事件中的请求。
func Pass(ev Event) Result {
	return Continue(ev.Request)
}

// IsSet 判断结果是否由 Continue/Terminal/Pass 构造，零值返回 false。
func (r Result) IsSet() bool {
	return r.kind != resultUnset
}

// IsTerminal reports whether the result short-circuits the lifecycle.
func (r Result) IsTerminal() bool {
	return r.kind == resultTerminal
}

// Request 返回 Continue 携带的请求；Terminal 结果返回零值。
func (r Result) Request() Request {
	if r.kind != resultContinue {
		return Request{}
	}
	return r.request.Clone()
}

// Response 返回 Terminal 携带的响应。
func (r Result) Response() (Response, bool) {
	if r.kind != resultTerminal {
		return Response{}, false
	}
	return r.response.Clone(), true
}
