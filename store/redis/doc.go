// Package redis provides Redis-backed checkpoint storage and a distributed
// per-thread lock.
//
// Key layout, with the default prefix "travelplanner:":
//
//	travelplanner:thread:<id>:steps        sorted set of step numbers
//	travelplanner:thread:<id>:step:<n>     JSON checkpoint
//	travelplanner:lock:<id>                run lock token
//
// # Basic Usage
//
//	st := redis.NewRedisCheckpointStore(redis.RedisOptions{
//	    Addr: "localhost:6379",
//	    TTL:  24 * time.Hour,
//	})
//	locker := redis.NewLocker(st.Client(), "", 0)
//
//	g, _ := workflow.Compile(graph.WithStore(st), graph.WithLocker(locker))
//
// The lock is acquired with SET NX and released with a compare-and-delete
// script, so an expired lock taken over by another process is never released
// by the original holder.
package redis
