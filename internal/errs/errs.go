// Package errs defines the closed numeric error-code set used at the
// tablet server's RPC/handler boundary. Internal packages return plain
// wrapped errors; handlers translate them to a Code via errors.As/Is.
package errs

import "fmt"

// Code is a stable, closed numeric error code surfaced to RPC clients.
type Code int

const (
	Ok Code = iota
	TableIsNotExist
	TableAlreadyExists
	TableIsLoading
	TableIsLeader
	TableIsFollower
	TableStatusIsNotNormal
	TableStatusIsKMakingSnapshot
	TableStatusIsNotKSnapshotPaused
	ReplicatorIsNotExist
	ReplicatorRoleIsNotLeader
	ReplicaEndpointAlreadyExists
	FailToAddReplicaEndpoint
	SnapshotIsNotExist
	SnapshotIsSending
	IdxNameNotFound
	TsNameNotFound
	TableMetaIsIllegal
	InvalidDimensionParameter
	InvalidParameter
	InvalidConcurrency
	StLessThanEt
	ReachTheScanMaxBytesSize
	EncodeError
	PutFailed
	PutBadFormat
	TsMustBeGreaterThanZero
	DeleteFailed
	WriteDataFailed
	ReceiveDataError
	BlockIdMismatch
	CannotFindReceiver
	FileReceiverInitFailed
	FailToGetDbRootPath
	FailToGetRecycleRootPath
	TableDbPathIsNotExist
	TableTypeMismatch
	AddIndexFailed
	DeleteIndexFailed
	ServerNameNotFound
	TtlTypeMismatch
	TtlIsGreaterThanConfValue
	NoFollower
	IsFollowerCluster
	CreateTableFailed
	ProcedureAlreadyExists
	ProcedureNotFound
	SQLCompileError
	SQLRunError
	CreateProcedureFailedOnTablet
)

var names = map[Code]string{
	Ok:                              "Ok",
	TableIsNotExist:                 "TableIsNotExist",
	TableAlreadyExists:              "TableAlreadyExists",
	TableIsLoading:                  "TableIsLoading",
	TableIsLeader:                   "TableIsLeader",
	TableIsFollower:                 "TableIsFollower",
	TableStatusIsNotNormal:          "TableStatusIsNotNormal",
	TableStatusIsKMakingSnapshot:    "TableStatusIsKMakingSnapshot",
	TableStatusIsNotKSnapshotPaused: "TableStatusIsNotKSnapshotPaused",
	ReplicatorIsNotExist:            "ReplicatorIsNotExist",
	ReplicatorRoleIsNotLeader:       "ReplicatorRoleIsNotLeader",
	ReplicaEndpointAlreadyExists:    "ReplicaEndpointAlreadyExists",
	FailToAddReplicaEndpoint:        "FailToAddReplicaEndpoint",
	SnapshotIsNotExist:              "SnapshotIsNotExist",
	SnapshotIsSending:               "SnapshotIsSending",
	IdxNameNotFound:                 "IdxNameNotFound",
	TsNameNotFound:                  "TsNameNotFound",
	TableMetaIsIllegal:              "TableMetaIsIllegal",
	InvalidDimensionParameter:       "InvalidDimensionParameter",
	InvalidParameter:                "InvalidParameter",
	InvalidConcurrency:              "InvalidConcurrency",
	StLessThanEt:                    "StLessThanEt",
	ReachTheScanMaxBytesSize:        "ReachTheScanMaxBytesSize",
	EncodeError:                     "EncodeError",
	PutFailed:                       "PutFailed",
	PutBadFormat:                    "PutBadFormat",
	TsMustBeGreaterThanZero:         "TsMustBeGreaterThanZero",
	DeleteFailed:                    "DeleteFailed",
	WriteDataFailed:                 "WriteDataFailed",
	ReceiveDataError:                "ReceiveDataError",
	BlockIdMismatch:                 "BlockIdMismatch",
	CannotFindReceiver:              "CannotFindReceiver",
	FileReceiverInitFailed:          "FileReceiverInitFailed",
	FailToGetDbRootPath:             "FailToGetDbRootPath",
	FailToGetRecycleRootPath:        "FailToGetRecycleRootPath",
	TableDbPathIsNotExist:           "TableDbPathIsNotExist",
	TableTypeMismatch:               "TableTypeMismatch",
	AddIndexFailed:                  "AddIndexFailed",
	DeleteIndexFailed:               "DeleteIndexFailed",
	ServerNameNotFound:              "ServerNameNotFound",
	TtlTypeMismatch:                 "TtlTypeMismatch",
	TtlIsGreaterThanConfValue:       "TtlIsGreaterThanConfValue",
	NoFollower:                      "NoFollower",
	IsFollowerCluster:               "IsFollowerCluster",
	CreateTableFailed:               "CreateTableFailed",
	ProcedureAlreadyExists:          "ProcedureAlreadyExists",
	ProcedureNotFound:               "ProcedureNotFound",
	SQLCompileError:                 "SQLCompileError",
	SQLRunError:                     "SQLRunError",
	CreateProcedureFailedOnTablet:   "CreateProcedureFailedOnTablet",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error wraps a Code with a human-readable message and an optional
// underlying cause, mapping storage errors onto a closed wire-protocol
// error enum at the RPC boundary.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs a Error carrying an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the Code from err, defaulting to InvalidParameter for
// errors that did not originate from this package.
func CodeOf(err error) Code {
	var e *Error
	if err == nil {
		return Ok
	}
	if ok := asError(err, &e); ok {
		return e.Code
	}
	return InvalidParameter
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
