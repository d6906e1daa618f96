package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// サービス名
const (
	SurveyServiceName = "survey.v1.SurveyService"
	AdminServiceName  = "survey.v1.AdminService"
)

// SurveyServiceServer は回答者向け gRPC サービスです。リクエスト・レスポンスは snake_case キーの Struct です。
type SurveyServiceServer interface {
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuestions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectNominee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Back(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Acknowledge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AdminServiceServer は管理者向け gRPC サービスです。
type AdminServiceServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SurveyServiceDesc は SurveyService のサービス定義です。
var SurveyServiceDesc = grpc.ServiceDesc{
	ServiceName: SurveyServiceName,
	HandlerType: (*SurveyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SurveyServiceName, "StartSession", SurveyServiceServer.StartSession),
		unaryMethod(SurveyServiceName, "GetState", SurveyServiceServer.GetState),
		unaryMethod(SurveyServiceName, "Login", SurveyServiceServer.Login),
		unaryMethod(SurveyServiceName, "GetQuestions", SurveyServiceServer.GetQuestions),
		unaryMethod(SurveyServiceName, "SelectNominee", SurveyServiceServer.SelectNominee),
		unaryMethod(SurveyServiceName, "Back", SurveyServiceServer.Back),
		unaryMethod(SurveyServiceName, "Submit", SurveyServiceServer.Submit),
		unaryMethod(SurveyServiceName, "Acknowledge", SurveyServiceServer.Acknowledge),
		unaryMethod(SurveyServiceName, "EndSession", SurveyServiceServer.EndSession),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "survey/v1/survey.proto",
}

// AdminServiceDesc は AdminService のサービス定義です。
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(AdminServiceName, "Login", AdminServiceServer.Login),
		unaryMethod(AdminServiceName, "GetReport", AdminServiceServer.GetReport),
		unaryMethod(AdminServiceName, "Logout", AdminServiceServer.Logout),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "survey/v1/admin.proto",
}

// RegisterSurveyServiceServer は SurveyService を登録します。
func RegisterSurveyServiceServer(s grpc.ServiceRegistrar, srv SurveyServiceServer) {
	s.RegisterService(&SurveyServiceDesc, srv)
}

// RegisterAdminServiceServer は AdminService を登録します。
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

// FullMethod は "/<service>/<method>" 形式のメソッド名を返します。
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

func unaryMethod[S any](service, method string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
