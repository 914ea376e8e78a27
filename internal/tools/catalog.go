package tools

// Endpoint configures where a catalog tool executes. A tool with no URL
// stays in mock mode.
type Endpoint struct {
	URL   string
	Async bool
}

func modeFor(endpoint Endpoint) (ExecutionMode, string) {
	if endpoint.URL == "" {
		return ModeMock, ""
	}
	if endpoint.Async {
		return ModeRemoteAsync, endpoint.URL
	}
	return ModeRemoteSync, endpoint.URL
}

// RegisterCatalog registers the five water-network tools, wiring each to
// its configured backend endpoint or to the mock dispatcher.
func RegisterCatalog(registry *Registry, endpoints map[string]Endpoint) error {
	for _, spec := range catalogSpecs() {
		mode, url := modeFor(endpoints[spec.Name])
		spec.Mode = mode
		spec.Endpoint = url
		if err := registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func catalogSpecs() []Spec {
	return []Spec{
		{
			Name:        "simulation",
			Description: "水网仿真模拟 - 预测流量、水位、压力等运行参数",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"network_config": map[string]interface{}{
						"type":        "object",
						"description": "水网配置（节点、管道拓扑）",
					},
					"boundary_conditions": map[string]interface{}{
						"type":        "object",
						"description": "边界条件（入流、出流、水位等）",
						"properties": map[string]interface{}{
							"inflow":   map[string]interface{}{"type": "number", "description": "入流量 (m³/h)"},
							"pressure": map[string]interface{}{"type": "number", "description": "压力 (MPa)"},
						},
					},
					"duration": map[string]interface{}{
						"type":        "number",
						"description": "模拟时长（小时）",
						"minimum":     1,
						"maximum":     168,
					},
				},
				"required": []string{"boundary_conditions", "duration"},
			},
		},
		{
			Name:        "identification",
			Description: "系统辨识 - 识别管网参数、校准模型",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"observed_data": map[string]interface{}{
						"type":        "array",
						"description": "观测数据（时间序列）",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"time":     map[string]interface{}{"type": "string"},
								"flow":     map[string]interface{}{"type": "number"},
								"pressure": map[string]interface{}{"type": "number"},
							},
						},
					},
					"model_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"linear", "nonlinear", "hybrid"},
						"description": "模型类型",
					},
					"parameters_to_identify": map[string]interface{}{
						"type":        "array",
						"description": "需要辨识的参数",
						"items":       map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"observed_data"},
			},
		},
		{
			Name:        "scheduling",
			Description: "优化调度 - 生成最优水资源调度方案",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"objective": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"minimize_cost", "minimize_energy", "maximize_efficiency", "balance"},
						"description": "优化目标",
					},
					"constraints": map[string]interface{}{
						"type":        "object",
						"description": "约束条件",
						"properties": map[string]interface{}{
							"max_flow":     map[string]interface{}{"type": "number"},
							"min_pressure": map[string]interface{}{"type": "number"},
							"max_power":    map[string]interface{}{"type": "number"},
						},
					},
					"time_horizon": map[string]interface{}{
						"type":        "number",
						"description": "调度时间范围（小时）",
						"minimum":     1,
						"maximum":     168,
					},
				},
				"required": []string{"objective", "time_horizon"},
			},
		},
		{
			Name:        "control",
			Description: "控制策略设计 - 设计和优化控制器（PID、MPC等）",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"controller_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"PID", "MPC", "fuzzy", "adaptive"},
						"description": "控制器类型",
					},
					"setpoint": map[string]interface{}{
						"type":        "number",
						"description": "设定值",
					},
					"process_model": map[string]interface{}{
						"type":        "object",
						"description": "过程模型参数",
					},
					"performance_spec": map[string]interface{}{
						"type":        "object",
						"description": "性能指标要求",
						"properties": map[string]interface{}{
							"settling_time": map[string]interface{}{"type": "number", "description": "调节时间(s)"},
							"overshoot":     map[string]interface{}{"type": "number", "description": "超调量(%)"},
						},
					},
				},
				"required": []string{"controller_type", "setpoint"},
			},
		},
		{
			Name:        "testing",
			Description: "性能测试 - 测试和评估系统性能",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"test_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"stress", "reliability", "efficiency", "stability"},
						"description": "测试类型",
					},
					"test_duration": map[string]interface{}{
						"type":        "number",
						"description": "测试时长（小时）",
					},
					"test_scenario": map[string]interface{}{
						"type":        "string",
						"description": "测试场景描述",
					},
				},
				"required": []string{"test_type"},
			},
		},
	}
}
