// Package topicmgr holds the fixed catalog of messenger topics and the native
// event names that feed them.
//
// Each topic is defined once, with the native transport event it is bound to,
// a category scope and a description:
//
//	var GetUser = topicmgr.Define(topicmgr.TopicConfig{
//		Name:        "GetUser",
//		NativeEvent: "VIGetUser",
//		Scope:       topicmgr.ScopeUser,
//		Description: "Result of a user lookup",
//		PayloadType: "UserEvent",
//	})
//
// Topics are registered with a manager, which validates the definition and
// rejects duplicate topic names or native event names:
//
//	manager := topicmgr.Default()
//	if err := manager.Register(GetUser); err != nil {
//		log.Fatal(err)
//	}
//
// Before a bridge starts relaying native events it should call CheckBindings
// with the full list of topics it expects, so a missing or unbound topic is
// detected at startup instead of silently never firing.
package topicmgr
