package main

import (
	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/loader"
)

// Demo app address plan: text stub, one page of static data, and a
// scratch range the bodies map themselves.
const (
	textBase = 0x10000
	dataBase = 0x11000
	scratch  = 0x40000
)

// ecall
var textStub = []byte{0x73, 0x00, 0x00, 0x00}

// buildApp wraps the text stub and an app's static data into an image.
func buildApp(data []byte) []byte {
	img := &loader.Image{
		Entry:      textBase,
		StackPages: 2,
		Segments: []loader.Segment{
			{
				Vaddr:   textBase,
				MemSize: abi.PageSize,
				Port:    abi.ProtRead | abi.ProtExec,
				Data:    textStub,
			},
		},
	}

	if len(data) > 0 {
		img.Segments = append(img.Segments, loader.Segment{
			Vaddr:   dataBase,
			MemSize: abi.PageSize,
			Port:    abi.ProtRead | abi.ProtWrite,
			Data:    data,
		})
	}

	blob, err := loader.Build(img)
	if err != nil {
		panic(err)
	}

	return blob
}

// say writes n bytes of the app's static data to the console.
func say(env loader.Env, off, n int) {
	env.Syscall(abi.SysWrite, [3]uint64{1, dataBase + uint64(off), uint64(n)})
}

const helloMsg = "hello from user space\n"

func helloBody(env loader.Env) {
	say(env, 0, len(helloMsg))
	env.Syscall(abi.SysExit, [3]uint64{0})
}

const (
	pingMsg = "ping\n"
	pongMsg = "pong\n"
)

func pingpongBody(env loader.Env) {
	for n := 0; n < 3; n++ {
		say(env, 0, len(pingMsg))
		env.Syscall(abi.SysYield, [3]uint64{})

		say(env, len(pingMsg), len(pongMsg))
		env.Syscall(abi.SysYield, [3]uint64{})
	}

	env.Syscall(abi.SysExit, [3]uint64{0})
}

const (
	mapOkMsg      = "mmap ok\n"
	mapRefusedMsg = "mmap refused\n"
	unmapOkMsg    = "munmap ok\n"
)

func mapperBody(env loader.Env) {
	if env.Syscall(abi.SysMmap, [3]uint64{scratch, 2 * abi.PageSize, 3}) == 0 {
		say(env, 0, len(mapOkMsg))
	}

	// mapping the same range again must be refused
	if env.Syscall(abi.SysMmap, [3]uint64{scratch, abi.PageSize, 3}) < 0 {
		say(env, len(mapOkMsg), len(mapRefusedMsg))
	}

	if env.Syscall(abi.SysMunmap, [3]uint64{scratch, 2 * abi.PageSize}) == 0 {
		say(env, len(mapOkMsg)+len(mapRefusedMsg), len(unmapOkMsg))
	}

	env.Syscall(abi.SysExit, [3]uint64{0})
}

const tickMsg = "tick\n"

func clockBody(env loader.Env) {
	before := env.Syscall(abi.SysGetTime, [3]uint64{0})

	for n := 0; n < 3; n++ {
		say(env, 0, len(tickMsg))
		env.Syscall(abi.SysYield, [3]uint64{})
	}

	after := env.Syscall(abi.SysGetTime, [3]uint64{0})

	code := 0
	if after < before {
		code = 1
	}

	env.Syscall(abi.SysExit, [3]uint64{uint64(code)})
}

const (
	statsOkMsg  = "stats ok\n"
	statsErrMsg = "stats err\n"
)

func statsBody(env loader.Env) {
	env.Syscall(abi.SysGetPid, [3]uint64{})
	env.Syscall(abi.SysGetPid, [3]uint64{})

	env.Syscall(abi.SysMmap, [3]uint64{scratch, abi.PageSize, 3})

	if env.Syscall(abi.SysTaskInfo, [3]uint64{scratch}) == 0 {
		say(env, 0, len(statsOkMsg))
	} else {
		say(env, len(statsOkMsg), len(statsErrMsg))
	}

	env.Syscall(abi.SysExit, [3]uint64{0})
}

const (
	spawnName    = "hello\x00"
	spawnedMsg   = "spawned hello\n"
	spawnFailMsg = "spawn failed\n"
)

func spawnerBody(env loader.Env) {
	if env.Syscall(abi.SysSpawn, [3]uint64{dataBase}) > 0 {
		say(env, len(spawnName), len(spawnedMsg))
	} else {
		say(env, len(spawnName)+len(spawnedMsg), len(spawnFailMsg))
	}

	// let the child have the core before we leave
	env.Syscall(abi.SysYield, [3]uint64{})

	env.Syscall(abi.SysExit, [3]uint64{0})
}

func echoBody(env loader.Env) {
	env.Syscall(abi.SysMmap, [3]uint64{scratch, abi.PageSize, 3})

	for {
		n := env.Syscall(abi.SysRead, [3]uint64{0, scratch, 64})
		if n <= 0 {
			break
		}

		env.Syscall(abi.SysWrite, [3]uint64{1, scratch, uint64(n)})
	}

	env.Syscall(abi.SysExit, [3]uint64{0})
}

func registerApps(reg *loader.Registry) error {
	apps := []loader.App{
		{Name: "hello", Blob: buildApp([]byte(helloMsg)), Body: helloBody},
		{Name: "pingpong", Blob: buildApp([]byte(pingMsg + pongMsg)), Body: pingpongBody},
		{Name: "mapper", Blob: buildApp([]byte(mapOkMsg + mapRefusedMsg + unmapOkMsg)), Body: mapperBody},
		{Name: "clock", Blob: buildApp([]byte(tickMsg)), Body: clockBody},
		{Name: "stats", Blob: buildApp([]byte(statsOkMsg + statsErrMsg)), Body: statsBody},
		{Name: "spawner", Blob: buildApp([]byte(spawnName + spawnedMsg + spawnFailMsg)), Body: spawnerBody},
		{Name: "echo", Blob: buildApp(nil), Body: echoBody},
	}

	for _, app := range apps {
		if err := reg.Register(app); err != nil {
			return err
		}
	}

	return nil
}
