package models

// StatusResponse is the body of the management status endpoint
type StatusResponse struct {
	Host              string `json:"host"`
	Uptime            string `json:"uptime"`
	Goroutines        int    `json:"goroutines"`
	CPUs              int    `json:"cpus"`
	MemoryAllocatedKB uint64 `json:"memoryAllocatedKb"`
	MemoryTotalKB     uint64 `json:"memoryTotalKb"`
	GCCycles          uint32 `json:"gcCycles"`
}
