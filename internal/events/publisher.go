package events

import (
	"fmt"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Publisher wraps the bus with one method per published topic so payload
// shapes stay consistent across the scheduler.
type Publisher struct {
	bus     *Bus
	traceID string
}

func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) BalancerStarted(strategy models.Strategy, monitoredNodes int) {
	event := models.NewEvent(models.TopicBalancerStarted, "", "Load balancer started").
		WithPayload(map[string]interface{}{
			"strategy":       strategy,
			"monitoredNodes": monitoredNodes,
		})
	p.publish(event)
}

func (p *Publisher) Decision(decision *models.LoadBalancingDecision) {
	msg := "Node selected: " + decision.SelectedNode
	event := models.NewEvent(models.TopicBalancerDecision, decision.SelectedNode, msg).
		WithPayload(map[string]interface{}{
			"decisionId":   decision.ID,
			"selectedNode": decision.SelectedNode,
			"score":        decision.Score,
			"strategy":     decision.Strategy,
			"taskPriority": decision.TaskPriority,
		})
	p.publish(event)
}

func (p *Publisher) NodeLoadUpdated(load *models.NodeLoad) {
	event := models.NewEvent(models.TopicNodeLoadUpdated, load.NodeID, "Node load updated").
		WithPayload(map[string]interface{}{
			"nodeId": load.NodeID,
			"load":   load,
		})
	p.publish(event)
}

func (p *Publisher) StrategyChanged(strategy models.Strategy, params models.StrategyParams) {
	msg := "Balancing strategy changed to " + string(strategy)
	event := models.NewEvent(models.TopicStrategyChanged, "", msg).
		WithPayload(map[string]interface{}{
			"strategy":   strategy,
			"parameters": params,
		})
	p.publish(event)
}

func (p *Publisher) AutoscalingStarted(activePolicies, nodePools int) {
	event := models.NewEvent(models.TopicAutoscalingStarted, "", "Auto-scaling manager started").
		WithPayload(map[string]interface{}{
			"activePolicies": activePolicies,
			"nodePools":      nodePools,
		})
	p.publish(event)
}

func (p *Publisher) PolicyAdded(policy *models.ScalingPolicy) {
	msg := "Scaling policy added: " + policy.Name
	event := models.NewEvent(models.TopicPolicyAdded, "", msg).
		WithPayload(map[string]interface{}{
			"policyId": policy.ID,
			"name":     policy.Name,
			"triggers": len(policy.Triggers),
			"enabled":  policy.Enabled,
		})
	p.publish(event)
}

func (p *Publisher) ActionStarted(action *models.ScalingAction) {
	msg := "Scaling action started: " + string(action.Type)
	event := models.NewEvent(models.TopicActionStarted, "", msg).
		WithPayload(map[string]interface{}{
			"actionId":    action.ID,
			"type":        action.Type,
			"targetNodes": action.TargetNodes,
			"impact":      action.Impact,
		})
	p.publish(event)
}

func (p *Publisher) ActionCompleted(action *models.ScalingAction) {
	msg := "Scaling action completed: " + string(action.Type)
	event := models.NewEvent(models.TopicActionCompleted, "", msg).
		WithPayload(map[string]interface{}{
			"actionId":    action.ID,
			"type":        action.Type,
			"targetNodes": action.TargetNodes,
			"duration":    action.Duration().Milliseconds(),
		})
	p.publish(event)
}

func (p *Publisher) ActionFailed(action *models.ScalingAction) {
	msg := fmt.Sprintf("Scaling action failed: %s: %s", action.Type, action.Error)
	event := models.NewEvent(models.TopicActionFailed, "", msg).
		WithSeverity(models.SeverityCritical).
		WithPayload(map[string]interface{}{
			"actionId": action.ID,
			"type":     action.Type,
			"error":    action.Error,
		})
	p.publish(event)
}

func (p *Publisher) NodePoolAdded(pool *models.NodePool) {
	msg := "Node pool added: " + pool.Name
	event := models.NewEvent(models.TopicNodePoolAdded, "", msg).
		WithPayload(map[string]interface{}{
			"poolId":   pool.ID,
			"nodeType": pool.NodeType,
			"minSize":  pool.MinSize,
			"maxSize":  pool.MaxSize,
		})
	p.publish(event)
}

func (p *Publisher) OptimizerStarted(modelCount, algorithmCount, profileCount int) {
	event := models.NewEvent(models.TopicOptimizerStarted, "", "Performance optimizer started").
		WithPayload(map[string]interface{}{
			"models":     modelCount,
			"algorithms": algorithmCount,
			"profiles":   profileCount,
		})
	p.publish(event)
}

func (p *Publisher) MetricRecorded(metric *models.PerformanceMetric) {
	event := models.NewEvent(models.TopicMetricRecorded, metric.NodeID, "Performance metric recorded").
		WithPayload(map[string]interface{}{
			"metricId":      metric.ID,
			"nodeId":        metric.NodeID,
			"executionTime": metric.ExecutionTime,
			"successRate":   metric.SuccessRate,
		})
	p.publish(event)
}

func (p *Publisher) Selection(selection *models.NodeSelection) {
	event := models.NewEvent(models.TopicSelection, "", "Optimal node selection computed").
		WithPayload(map[string]interface{}{
			"selectedNodes": selection.SelectedNodes,
			"criteria":      selection.Criteria,
			"confidence":    selection.Confidence,
			"workloadType":  selectionWorkloadType(selection),
		})
	p.publish(event)
}

func selectionWorkloadType(selection *models.NodeSelection) string {
	if len(selection.Rankings) == 0 {
		return ""
	}
	return selection.Rankings[0].Workload.TaskType
}
