// Package model holds everything the event processor extracts from a trace:
// entity tables resolved by handle and time, and flat instance tables the
// latency composer correlates later.
package model

import "github.com/hsgwa/trace-analysis/pkg/record"

// LifecycleTransition is one state change of a lifecycle state machine.
type LifecycleTransition struct {
	StateMachineHandle uint64
	Timestamp          uint64
	StartLabel         string
	GoalLabel          string
}

// DataModel is the processed form of a trace.
type DataModel struct {
	Contexts               *EntityTable[Context]
	Nodes                  *EntityTable[Node]
	Publishers             *EntityTable[Publisher]
	Subscriptions          *EntityTable[Subscription]
	Services               *EntityTable[Service]
	Clients                *EntityTable[Client]
	Timers                 *EntityTable[Timer]
	TimerNodeLinks         *EntityTable[TimerNodeLink]
	CallbackObjects        *EntityTable[CallbackObject]
	CallbackSymbols        *EntityTable[CallbackSymbol]
	LifecycleStateMachines *EntityTable[LifecycleStateMachine]

	// CallbackInstances holds one row per paired start/end. Starts that never
	// saw their end stay in openInstances instead.
	CallbackInstances      *record.Records
	ApplicationPublishes   *record.Records
	MiddlewarePublishes    *record.Records
	IntraProcessPublishes  *record.Records
	MessageConstructs      *record.Records
	Dispatches             *record.Records
	IntraProcessDispatches *record.Records
	TransportWrites        *record.Records
	TransportAvailables    *record.Records
	TransportTakes         *record.Records
	StampBinds             *record.Records
	AddressBinds           *record.Records

	LifecycleTransitions []LifecycleTransition

	openInstances *record.Records
}

// NewDataModel creates an empty model with every table initialized.
func NewDataModel() *DataModel {
	m := &DataModel{
		Contexts:               NewEntityTable[Context]("context"),
		Nodes:                  NewEntityTable[Node]("node"),
		Publishers:             NewEntityTable[Publisher]("publisher"),
		Subscriptions:          NewEntityTable[Subscription]("subscription"),
		Services:               NewEntityTable[Service]("service"),
		Clients:                NewEntityTable[Client]("client"),
		Timers:                 NewEntityTable[Timer]("timer"),
		TimerNodeLinks:         NewEntityTable[TimerNodeLink]("timer_node_link"),
		CallbackObjects:        NewEntityTable[CallbackObject]("callback_object"),
		CallbackSymbols:        NewEntityTable[CallbackSymbol]("callback_symbol"),
		LifecycleStateMachines: NewEntityTable[LifecycleStateMachine]("lifecycle_state_machine"),

		CallbackInstances:      record.NewRecords(),
		ApplicationPublishes:   record.NewRecords(),
		MiddlewarePublishes:    record.NewRecords(),
		IntraProcessPublishes:  record.NewRecords(),
		MessageConstructs:      record.NewRecords(),
		Dispatches:             record.NewRecords(),
		IntraProcessDispatches: record.NewRecords(),
		TransportWrites:        record.NewRecords(),
		TransportAvailables:    record.NewRecords(),
		TransportTakes:         record.NewRecords(),
		StampBinds:             record.NewRecords(),
		AddressBinds:           record.NewRecords(),

		openInstances: record.NewRecords(),
	}

	m.CallbackInstances.SetColumns(
		ColCallbackObject,
		ColCallbackStartTimestamp,
		ColCallbackEndTimestamp,
		ColIsIntraProcess,
	)
	m.ApplicationPublishes.SetColumns(ColAppPublishTimestamp, ColPublisherHandle, ColMessage)
	m.MiddlewarePublishes.SetColumns(ColMidPublishTimestamp, ColPublisherHandle, ColMessage)
	m.IntraProcessPublishes.SetColumns(ColIntraPublishTimestamp, ColPublisherHandle, ColMessage)
	m.MessageConstructs.SetColumns(ColMessageConstructTimestamp, ColOriginalMessage, ColConstructedMessage)
	m.Dispatches.SetColumns(ColDispatchTimestamp, ColCallbackObject, ColMessage)
	m.IntraProcessDispatches.SetColumns(ColIntraDispatchTimestamp, ColCallbackObject, ColMessage)
	m.TransportWrites.SetColumns(ColTransportWriteTimestamp, ColMessage)
	m.TransportAvailables.SetColumns(ColTransportAvailTimestamp, ColSourceTimestamp)
	m.TransportTakes.SetColumns(ColTransportTakeTimestamp, ColSourceTimestamp, ColMessage)
	m.StampBinds.SetColumns(ColStampBindTimestamp, ColAddr, ColSourceTimestamp)
	m.AddressBinds.SetColumns(ColAddrBindTimestamp, ColAddrFrom, ColAddrTo)
	m.openInstances.SetColumns(ColCallbackObject, ColCallbackStartTimestamp, ColIsIntraProcess)

	return m
}

// AddOpenInstance records a callback start that never completed. Open
// instances are a normal end-of-trace condition, not an error.
func (m *DataModel) AddOpenInstance(r *record.Record) {
	m.openInstances.Append(r)
}

// OpenInstances returns the callback starts left unmatched at trace end.
func (m *DataModel) OpenInstances() *record.Records {
	return m.openInstances
}
