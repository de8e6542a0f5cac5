// Demonstrates the full bridge surface against a synthetic host image:
// address resolution, pointer chains, schema views, hooking, native calls
// through the Go-function caller, and the engine lock.
package main

import (
	"encoding/binary"
	"fmt"

	"hostbridge/address"
	"hostbridge/bridge"
	"hostbridge/engine"
	"hostbridge/hexdump"
	"hostbridge/hook"
	"hostbridge/hostapi"
	"hostbridge/nativecall"
)

const (
	imageBase   = bridge.Address(0x140000000)
	playerBase  = imageBase + 0x2000
	monsterData = imageBase + 0x3000
	damageFn    = imageBase + 0x500
)

// buildImage lays out a fake host module: a scannable signature whose
// trailing bytes point at the player singleton, and a player struct whose
// first slot chains to monster data.
func buildImage() *bridge.BufferRegion {
	data := make([]byte, 0x10000)

	copy(data[0x480:], []byte{0x48, 0x8B, 0x05, 0xEE, 0xEE})
	binary.LittleEndian.PutUint64(data[0x490:], uint64(playerBase))

	binary.LittleEndian.PutUint64(data[0x2000:], uint64(monsterData))
	binary.LittleEndian.PutUint32(data[0x3000+0x18:], 1500) // health
	binary.LittleEndian.PutUint32(data[0x3000+0x1C:], 2000) // max health
	copy(data[0x3000+0x40:], append([]byte("Rathalos"), 0))

	return bridge.NewBufferRegion(imageBase, data)
}

func main() {
	region := buildImage()

	// Resolve a named address by signature.
	repo := address.NewRepository(region)
	sig, err := repo.GetOrInsert("PlayerSingletonRef", "48 8B 05 ?? ?? 00", 0x10)
	if err != nil {
		panic(err)
	}
	fmt.Println("signature resolved to", sig.Address())

	window, _ := hexdump.Window(region, sig.Address(), 0x10, 0x10)
	fmt.Print(window)

	// Walk the chain: ref slot -> player -> monster health.
	player, err := sig.ReadPointer()
	if err != nil {
		panic(err)
	}
	health, err := player.Offset(0x00, 0x18)
	if err != nil {
		panic(err)
	}
	hp, _ := health.ReadU32()
	fmt.Println("monster health:", hp)

	// The same layout as a schema view.
	schema, err := bridge.NewSchema(
		bridge.Field{Name: "health", Offset: 0x18, Kind: bridge.KindU32},
		bridge.Field{Name: "max_health", Offset: 0x1C, Kind: bridge.KindU32},
		bridge.Field{Name: "name", Offset: 0x40, Kind: bridge.KindStringUTF8, MaxLen: 32},
	)
	if err != nil {
		panic(err)
	}
	monster, _ := player.ReadPointer()
	view := schema.Bind(monster)
	name, _ := view.Read("name")
	fmt.Println("monster:", name)
	view.Write("health", uint32(1))

	// Hook the damage function and forward to the original.
	patcher := hook.NewRegionPatcher(region, imageBase+0x8000)
	patcher.RegisterOriginal(damageFn, func() error {
		fmt.Println("  original damage routine ran")
		return nil
	})
	icp := hook.New(patcher)
	icp.Attach(damageFn, func(inv *hook.Invocation) error {
		fmt.Println("  damage intercepted at", inv.Address())
		return inv.CallOriginal()
	})
	icp.Dispatch(damageFn)
	icp.Detach(damageFn)

	// Call a "native" function through the emulated caller.
	caller := nativecall.NewFuncCaller()
	caller.Register(damageFn, func(args []uintptr) uintptr {
		return args[0] * 2
	})
	ncb := nativecall.NewBridge(caller)
	res, _ := ncb.Call(damageFn, nativecall.RetU64, nativecall.U64(21))
	fmt.Println("native call returned", res.U64())

	// Engine lock and lifecycle through the host table.
	lock := &engine.Lock{}
	lifecycle := engine.NewLifecycle()
	api := hostapi.Bind(hostapi.Backends{
		Repo:      repo,
		Lifecycle: lifecycle,
		Lock:      lock,
	})
	api.OnEngineCreated(func(h engine.Handle) {
		fmt.Println("engine created:", uint64(h))
	})
	lifecycle.NotifyCreated(engine.Handle(1))
	api.WithEngineLock(func() error {
		fmt.Println("holding the engine lock")
		return nil
	})
	lifecycle.NotifyDestroyed(engine.Handle(1))
}
