package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
)

// RegisterBehaviorRoutes 暴露 /-/behaviors 与 /-/functions 诊断接口，
// 用于确认 pattern 顺序、阶段绑定与源站配置是否符合预期。
func RegisterBehaviorRoutes(app *fiber.App, registry *behavior.Registry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/behaviors", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"behaviors": encodeBehaviors(registry.List()),
		})
	})

	app.Get("/-/functions", func(c fiber.Ctx) error {
		defs := functions.List()
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
		}
		return c.JSON(fiber.Map{
			"functions": encodeFunctions(defs),
			"status":    functions.Snapshot(names),
		})
	})
}

type behaviorPayload struct {
	Pattern  string            `json:"pattern"`
	Handlers map[string]string `json:"handlers"`
	Origin   originPayload     `json:"origin"`
}

type originPayload struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Custom bool   `json:"custom"`
}

type functionPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Stages      []string `json:"stages"`
}

func encodeBehaviors(sets []*behavior.FunctionSet) []behaviorPayload {
	result := make([]behaviorPayload, 0, len(sets))
	for _, set := range sets {
		handlers := make(map[string]string)
		for stage, name := range set.HandlerNames() {
			handlers[stage.String()] = name
		}
		o := set.Origin()
		result = append(result, behaviorPayload{
			Pattern:  set.Pattern(),
			Handlers: handlers,
			Origin: originPayload{
				Kind:   string(o.Kind()),
				Target: o.Target(),
				Custom: o.Custom() != nil,
			},
		})
	}
	return result
}

func encodeFunctions(defs []functions.Definition) []functionPayload {
	result := make([]functionPayload, 0, len(defs))
	for _, def := range defs {
		stages := def.Stages
		if len(stages) == 0 {
			stages = edge.Stages()
		}
		names := make([]string, 0, len(stages))
		for _, s := range stages {
			names = append(names, s.String())
		}
		result = append(result, functionPayload{
			Name:        def.Name,
			Description: def.Description,
			Stages:      names,
		})
	}
	return result
}
